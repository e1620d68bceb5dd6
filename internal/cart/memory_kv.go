package cart

import (
	"context"
	"errors"
	"sync"
)

// ErrStoreUnavailable is returned by MemoryKV while failures are switched on.
var ErrStoreUnavailable = errors.New("kv store unavailable")

// MemoryKV is an in-process KV, used in tests.
type MemoryKV struct {
	mu         sync.Mutex
	data       map[string]string
	failWrites bool
	failReads  bool
	writes     int
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Read(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return "", false, ErrStoreUnavailable
	}
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *MemoryKV) Write(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return ErrStoreUnavailable
	}
	m.data[key] = value
	m.writes++
	return nil
}

// FailWrites toggles write failures.
func (m *MemoryKV) FailWrites(fail bool) {
	m.mu.Lock()
	m.failWrites = fail
	m.mu.Unlock()
}

// FailReads toggles read failures.
func (m *MemoryKV) FailReads(fail bool) {
	m.mu.Lock()
	m.failReads = fail
	m.mu.Unlock()
}

// Writes reports how many successful writes were recorded.
func (m *MemoryKV) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Raw returns the stored value for key without going through Read.
func (m *MemoryKV) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	return value, ok
}

// Put seeds a raw value, e.g. a corrupt record.
func (m *MemoryKV) Put(key, value string) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}
