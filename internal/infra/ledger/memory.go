// Package ledger stores gateway transactions. Memory is the default;
// SQLite keeps the ledger across restarts and is shared with payctl.
package ledger

import (
	"context"
	"sync"

	"github.com/boddenberg/plan-assistant-go/internal/domain"
)

// Memory is a concurrency-safe in-process ledger.
type Memory struct {
	mu  sync.RWMutex
	txs map[string]domain.Transaction
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{txs: make(map[string]domain.Transaction)}
}

// Save stores a new transaction. Stored values are copies.
func (m *Memory) Save(_ context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.ID] = *tx
	return nil
}

// Get returns a copy of the transaction or *domain.ErrNotFound.
func (m *Memory) Get(_ context.Context, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	return &tx, nil
}

// Update replaces an existing transaction.
func (m *Memory) Update(_ context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[tx.ID]; !ok {
		return &domain.ErrNotFound{Resource: "transaction", ID: tx.ID}
	}
	m.txs[tx.ID] = *tx
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }
