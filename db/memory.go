package db

import (
	"context"
	"sync"

	"github.com/andys/customer_import/customer"
	"github.com/andys/customer_import/worker"
)

// Memory is an in-process store for dry runs. Transactions are serialized.
type Memory struct {
	mu      sync.Mutex
	records map[string]customer.Customer
	batches [][]string
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{records: make(map[string]customer.Customer)}
}

func (m *Memory) Save(ctx context.Context, rec customer.Customer) (customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return rec, nil
}

// InTx buffers saves and applies them only if fn succeeds
func (m *Memory) InTx(ctx context.Context, fn func(repo worker.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{}
	if err := fn(tx); err != nil {
		return err
	}
	ids := make([]string, 0, len(tx.pending))
	for _, rec := range tx.pending {
		m.records[rec.ID] = rec
		ids = append(ids, rec.ID)
	}
	m.batches = append(m.batches, ids)
	return nil
}

type memoryTx struct {
	pending []customer.Customer
}

func (t *memoryTx) Save(ctx context.Context, rec customer.Customer) (customer.Customer, error) {
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	t.pending = append(t.pending, rec)
	return rec, nil
}

// Get returns the stored record for id
func (m *Memory) Get(id string) (customer.Customer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	return rec, ok
}

// Len is the number of distinct records stored
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Batches returns the ids committed by each transaction, in commit order
func (m *Memory) Batches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.batches))
	copy(out, m.batches)
	return out
}

func (m *Memory) VerifyTable(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
