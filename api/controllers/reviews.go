package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/alexandria-backend/api/responses"
	"github.com/angelmondragon/alexandria-backend/api/validators"
	"github.com/angelmondragon/alexandria-backend/internal/reviews"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
)

// ReviewService is the reviews surface the controllers need.
type ReviewService interface {
	Submit(ctx context.Context, input reviews.SubmitInput) (*reviews.Review, error)
	List(ctx context.Context, bookID string, limit int) ([]reviews.Review, reviews.Summary, error)
}

type submitReviewRequest struct {
	AuthorName string `json:"author_name" validate:"required,max=120"`
	Rating     int    `json:"rating" validate:"required,gte=1,lte=5"`
	Title      string `json:"title" validate:"max=200"`
	Body       string `json:"body" validate:"required,max=4000"`
}

func ReviewsList(svc ReviewService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, summary, err := svc.List(r.Context(), chi.URLParam(r, "bookID"), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if list == nil {
			list = []reviews.Review{}
		}
		responses.WriteSuccess(w, map[string]any{
			"reviews": list,
			"summary": summary,
		})
	}
}

func ReviewsSubmit(svc ReviewService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		var payload submitReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := svc.Submit(r.Context(), reviews.SubmitInput{
			BookID:     chi.URLParam(r, "bookID"),
			AuthorName: payload.AuthorName,
			Rating:     payload.Rating,
			Title:      payload.Title,
			Body:       payload.Body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}
