// Package pagination implements keyset paging for the book catalog. Pages run
// newest first and a cursor names the last row served, so books added between
// requests never shift or repeat a page. Order history shares the limit bounds.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the catalog page size when the shopper does not ask for one.
	DefaultLimit = 20
	// MaxLimit bounds any single listing query.
	MaxLimit = 100
)

const cursorSeparator = "|"

var errCursorShape = errors.New("cursor must hold a timestamp and a row id")

// Params is the limit and opaque cursor taken from a listing request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the sort key of the last row on the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit maps a missing limit to DefaultLimit and clamps to MaxLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer asks for one extra row so the query itself reveals a next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Trim cuts rows fetched with LimitWithBuffer down to one page and reports whether more remain.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	pageSize := NormalizeLimit(limit)
	if len(rows) > pageSize {
		return rows[:pageSize], true
	}
	return rows, false
}

// EncodeCursor produces a URL-safe token that can go straight into a query string.
func EncodeCursor(cursor Cursor) string {
	payload := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor returns nil for an empty token, meaning the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	createdAt, id, ok := strings.Cut(string(decoded), cursorSeparator)
	if !ok {
		return nil, errCursorShape
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	rowID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("cursor row id: %w", err)
	}
	return &Cursor{CreatedAt: t, ID: rowID}, nil
}
