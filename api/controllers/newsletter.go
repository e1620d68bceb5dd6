package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/alexandria-backend/api/responses"
	"github.com/angelmondragon/alexandria-backend/api/validators"
	"github.com/angelmondragon/alexandria-backend/internal/newsletter"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
)

// NewsletterService records storefront signups.
type NewsletterService interface {
	Subscribe(ctx context.Context, input newsletter.SignupInput) (*newsletter.Subscriber, bool, error)
}

type newsletterSignupRequest struct {
	Email     string `json:"email" validate:"required"`
	FirstName string `json:"first_name" validate:"max=100"`
	Source    string `json:"source" validate:"max=40"`
}

// NewsletterSubscribe records a signup. Repeat signups answer 200 with the existing row.
func NewsletterSubscribe(svc NewsletterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "newsletter")
			return
		}
		var payload newsletterSignupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		subscriber, created, err := svc.Subscribe(r.Context(), newsletter.SignupInput{
			Email:     payload.Email,
			FirstName: payload.FirstName,
			Source:    payload.Source,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"subscriber": subscriber,
			"created":    created,
		})
	}
}
