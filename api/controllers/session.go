package controllers

import (
	"net/http"

	"github.com/angelmondragon/alexandria-backend/api/middleware"
	"github.com/angelmondragon/alexandria-backend/api/responses"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
)

// requireSession writes an error and returns false when the session middleware did not run.
func requireSession(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session context missing"))
		return "", false
	}
	return sessionID, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
