package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/alexandria-backend/api/responses"
	"github.com/angelmondragon/alexandria-backend/api/validators"
	"github.com/angelmondragon/alexandria-backend/internal/orders"
	"github.com/angelmondragon/alexandria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
)

type adminStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
	// Override bypasses the transition graph and requires a reason.
	Override bool `json:"override"`
}

func AdminOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		order, err := svc.Get(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrdersByCustomer lists a customer's orders by email, newest first.
func AdminOrdersByCustomer(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByCustomer(r.Context(), validators.QueryString(r, "email", 254), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []orders.Order{}
		}
		responses.WriteSuccess(w, map[string]any{"orders": list})
	}
}

// AdminOrderStatus moves an order along the transition graph, or forces it when
// override is set.
func AdminOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		var payload adminStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		orderID := chi.URLParam(r, "orderID")
		var order *orders.Order
		if payload.Override {
			order, err = svc.OverrideStatus(r.Context(), orderID, status, payload.Reason)
		} else {
			order, err = svc.UpdateStatus(r.Context(), orderID, status)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(logg.WithOrderID(r.Context(), order.ID), map[string]any{
				"status":   order.Status,
				"override": payload.Override,
				"reason":   payload.Reason,
			})
			logg.Info(ctx, "admin.order.status_changed")
		}
		responses.WriteSuccess(w, order)
	}
}
