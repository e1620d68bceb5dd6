package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/alexandria-backend/api/responses"
	"github.com/angelmondragon/alexandria-backend/api/validators"
	"github.com/angelmondragon/alexandria-backend/internal/checkout"
	"github.com/angelmondragon/alexandria-backend/internal/orders"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
)

type checkoutCustomerPayload struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"max=40"`
}

type checkoutRequest struct {
	Customer checkoutCustomerPayload `json:"customer"`
}

// CheckoutPaymentIntent prices the session cart, creates the payment intent and stores
// the pending order. The Idempotency-Key header, when present, keys both.
func CheckoutPaymentIntent(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "checkout")
			return
		}
		sessionID, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Start(r.Context(), checkout.StartInput{
			SessionID: sessionID,
			Customer: orders.CustomerInfo{
				Email: payload.Customer.Email,
				Name:  validators.SanitizeString(payload.Customer.Name, 200),
				Phone: validators.SanitizeString(payload.Customer.Phone, 40),
			},
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
