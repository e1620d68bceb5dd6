package catalog

import (
	"time"

	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	"github.com/angelmondragon/alexandria-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookDTO is the storefront representation of a catalog listing.
type BookDTO struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Genre       string          `json:"genre"`
	Description *string         `json:"description,omitempty"`
	ISBN        *string         `json:"isbn,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageRef    string          `json:"image_ref"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ListFilters narrows the browse endpoint.
type ListFilters struct {
	Genre string `json:"genre,omitempty"`
	Query string `json:"q,omitempty"`
}

// ListInput captures a single catalog page request.
type ListInput struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// ListResult is one page of books plus the cursor for the next page.
type ListResult struct {
	Books      []BookDTO `json:"books"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

func toDTO(book models.Book) BookDTO {
	return BookDTO{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Genre:       book.Genre,
		Description: book.Description,
		ISBN:        book.ISBN,
		Price:       book.Price,
		ImageRef:    book.ImageRef,
		CreatedAt:   book.CreatedAt.UTC(),
	}
}
