package cart

import "context"

// KV is the session-scoped key-value store carts are persisted to.
type KV interface {
	Read(ctx context.Context, key string) (string, bool, error)
	Write(ctx context.Context, key, value string) error
}

// BookResolver looks up the authoritative listing for a book id.
type BookResolver interface {
	ResolveBook(ctx context.Context, bookID string) (Book, error)
}

// KeyFunc maps a session id onto the storage key holding its cart.
type KeyFunc func(sessionID string) string

// DefaultKey is the storage key layout used when no KeyFunc is supplied.
func DefaultKey(sessionID string) string {
	return "al:cart:" + sessionID
}
