package orders

import (
	"context"
	"encoding/json"
	"strings"

	pkgerrors "github.com/angelmondragon/alexandria-backend/pkg/errors"
	"github.com/angelmondragon/alexandria-backend/pkg/logger"
)

// maxHistory caps how many orders a session keeps locally; the repository holds the rest.
const maxHistory = 50

// HistoryKeyFunc maps a session id onto its history key.
type HistoryKeyFunc func(sessionID string) string

// DefaultHistoryKey is the key layout used when no HistoryKeyFunc is supplied.
func DefaultHistoryKey(sessionID string) string {
	return "al:order_history:" + sessionID
}

type kvHistory struct {
	kv     KV
	keyFor HistoryKeyFunc
	logg   *logger.Logger
}

// NewHistoryStore stores each session's orders as a JSON array, newest first.
func NewHistoryStore(kv KV, keyFor HistoryKeyFunc, logg *logger.Logger) HistoryStore {
	if keyFor == nil {
		keyFor = DefaultHistoryKey
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &kvHistory{kv: kv, keyFor: keyFor, logg: logg}
}

// List is best effort: unreadable or corrupt history reads as empty.
func (h *kvHistory) List(ctx context.Context, sessionID string) ([]Order, error) {
	key := h.keyFor(sessionID)
	raw, found, err := h.kv.Read(ctx, key)
	if err != nil {
		h.logg.Warn(h.logg.WithFields(ctx, map[string]any{"key": key, "error": err.Error()}), "order history read failed")
		return []Order{}, nil
	}
	if !found || strings.TrimSpace(raw) == "" {
		return []Order{}, nil
	}
	var history []Order
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		h.logg.Warn(h.logg.WithFields(ctx, map[string]any{"key": key, "error": err.Error()}), "corrupt order history")
		return []Order{}, nil
	}
	for i := range history {
		history[i].SessionID = sessionID
	}
	return history, nil
}

// Upsert replaces the entry with the same order id or prepends a new one.
func (h *kvHistory) Upsert(ctx context.Context, sessionID string, order Order) error {
	history, _ := h.List(ctx, sessionID)
	replaced := false
	for i := range history {
		if history[i].ID == order.ID {
			history[i] = order
			replaced = true
			break
		}
	}
	if !replaced {
		history = append([]Order{order}, history...)
	}
	if len(history) > maxHistory {
		history = history[:maxHistory]
	}
	buf, err := json.Marshal(history)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order history")
	}
	if err := h.kv.Write(ctx, h.keyFor(sessionID), string(buf)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "persist order history")
	}
	return nil
}
