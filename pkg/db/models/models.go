package models

// All lists every persisted model, in dependency order, for test schemas and SQLite bootstrap.
func All() []any {
	return []any{
		&Book{},
		&Order{},
		&OrderItem{},
		&Review{},
		&NewsletterSubscriber{},
	}
}
