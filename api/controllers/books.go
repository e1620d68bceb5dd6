package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/alexandria-backend/api/responses"
	"github.com/angelmondragon/alexandria-backend/api/validators"
	"github.com/angelmondragon/alexandria-backend/internal/catalog"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
	"github.com/angelmondragon/alexandria-backend/pkg/pagination"
)

// BooksList pages through active books, optionally filtered by genre and a title/author query.
func BooksList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.ListInput{
			Filters: catalog.ListFilters{
				Genre: validators.QueryString(r, "genre", 64),
				Query: validators.QueryString(r, "q", 128),
			},
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: validators.QueryString(r, "cursor", 256),
			},
		}

		result, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func BookDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}
		book, err := svc.Get(r.Context(), chi.URLParam(r, "bookID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

func BookGenres(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}
		genres, err := svc.Genres(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"genres": genres})
	}
}
