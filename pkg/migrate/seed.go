package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/alexandria-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedBook struct {
	id     string
	isbn   string
	title  string
	author string
	genre  string
	price  string
	image  string
	blurb  string
}

var catalogSeed = []seedBook{
	{"8f14e45f-ceea-467f-a0e6-4a1d3b1c0001", "9780141439518", "Pride and Prejudice", "Jane Austen", "classics", "10.99", "/covers/pride-and-prejudice.jpg", "A witty study of manners, marriage and first impressions."},
	{"8f14e45f-ceea-467f-a0e6-4a1d3b1c0002", "9780451524935", "Nineteen Eighty-Four", "George Orwell", "fiction", "15.50", "/covers/1984.jpg", "Surveillance, doublethink and the last man in Europe."},
	{"8f14e45f-ceea-467f-a0e6-4a1d3b1c0003", "9780140449136", "Crime and Punishment", "Fyodor Dostoevsky", "classics", "8.25", "/covers/crime-and-punishment.jpg", "A student's crime and the conscience that follows."},
	{"8f14e45f-ceea-467f-a0e6-4a1d3b1c0004", "9780547928227", "The Hobbit", "J.R.R. Tolkien", "fantasy", "12.99", "/covers/the-hobbit.jpg", "There and back again."},
	{"8f14e45f-ceea-467f-a0e6-4a1d3b1c0005", "9780062316097", "Sapiens", "Yuval Noah Harari", "nonfiction", "18.75", "/covers/sapiens.jpg", "A brief history of humankind."},
	{"8f14e45f-ceea-467f-a0e6-4a1d3b1c0006", "9780553418026", "The Martian", "Andy Weir", "science-fiction", "11.40", "/covers/the-martian.jpg", "Stranded on Mars with a lot of potatoes."},
}

// SeedCatalog inserts the launch catalog, skipping books that already exist. It returns
// the number of rows inserted.
func SeedCatalog(ctx context.Context, conn *gorm.DB) (int, error) {
	inserted := 0
	for _, seed := range catalogSeed {
		book, err := seed.model()
		if err != nil {
			return inserted, err
		}
		var count int64
		if err := conn.WithContext(ctx).Model(&models.Book{}).Where("id = ?", book.ID).Count(&count).Error; err != nil {
			return inserted, fmt.Errorf("check seed %q: %w", seed.title, err)
		}
		if count > 0 {
			continue
		}
		if err := conn.WithContext(ctx).Create(&book).Error; err != nil {
			return inserted, fmt.Errorf("seed %q: %w", seed.title, err)
		}
		inserted++
	}
	return inserted, nil
}

func (s seedBook) model() (models.Book, error) {
	id, err := uuid.Parse(s.id)
	if err != nil {
		return models.Book{}, fmt.Errorf("seed id %q: %w", s.id, err)
	}
	price, err := decimal.NewFromString(s.price)
	if err != nil {
		return models.Book{}, fmt.Errorf("seed price %q: %w", s.price, err)
	}
	isbn := s.isbn
	blurb := s.blurb
	return models.Book{
		ID:          id,
		Title:       s.title,
		Author:      s.author,
		Genre:       s.genre,
		Description: &blurb,
		ISBN:        &isbn,
		Price:       price,
		ImageRef:    s.image,
		IsActive:    true,
	}, nil
}
