// Package quotestore tracks issued quotes so execute can consume each one
// exactly once.
package quotestore

import (
	"context"
	"sync"
	"time"

	scouterr "github.com/Sonic-Vault/scout-api/internal/errors"
	"github.com/Sonic-Vault/scout-api/internal/model"
)

// Store holds issued quotes for their validity window. Consume is atomic
// get-and-delete: a second consume of the same id fails.
type Store interface {
	Put(ctx context.Context, quote *model.Quote, ttl time.Duration) error
	Consume(ctx context.Context, quoteID string) (*model.Quote, error)
}

type memoryEntry struct {
	quote     *model.Quote
	expiresAt time.Time
}

// Memory is the in-process Store. It is the default when no Redis endpoint is
// configured, and what the tests use.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Put(_ context.Context, quote *model.Quote, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[quote.QuoteID] = memoryEntry{quote: quote, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Consume(_ context.Context, quoteID string) (*model.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[quoteID]
	if !ok {
		return nil, scouterr.Newf(scouterr.KindNotFound, "unknown quote %q", quoteID)
	}
	delete(m.entries, quoteID)
	if m.now().After(entry.expiresAt) {
		return nil, scouterr.Newf(scouterr.KindQuoteExpired, "quote %q has expired", quoteID)
	}
	return entry.quote, nil
}
