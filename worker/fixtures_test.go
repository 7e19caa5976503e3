package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andys/customer_import/customer"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/frankban/quicktest"
)

// memRepo records every transaction as a batch of ids
type memRepo struct {
	mu      sync.Mutex
	saved   map[string]customer.Customer
	batches [][]string
	failOn  map[string]int // id -> remaining failures
}

func newMemRepo() *memRepo {
	return &memRepo{saved: map[string]customer.Customer{}, failOn: map[string]int{}}
}

func (m *memRepo) Save(ctx context.Context, rec customer.Customer) (customer.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(rec, nil)
}

func (m *memRepo) saveLocked(rec customer.Customer, batch *[]string) (customer.Customer, error) {
	if n := m.failOn[rec.ID]; n > 0 {
		m.failOn[rec.ID] = n - 1
		return rec, fmt.Errorf("duplicate key %s", rec.ID)
	}
	if batch != nil {
		*batch = append(*batch, rec.ID)
	} else {
		m.saved[rec.ID] = rec
	}
	return rec, nil
}

type memTx struct {
	m       *memRepo
	pending []customer.Customer
	ids     []string
}

func (t *memTx) Save(ctx context.Context, rec customer.Customer) (customer.Customer, error) {
	if _, err := t.m.saveLocked(rec, &t.ids); err != nil {
		return rec, err
	}
	t.pending = append(t.pending, rec)
	return rec, nil
}

func (m *memRepo) InTx(ctx context.Context, fn func(repo Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{m: m}
	if err := fn(tx); err != nil {
		return err
	}
	for _, rec := range tx.pending {
		m.saved[rec.ID] = rec
	}
	m.batches = append(m.batches, tx.ids)
	return nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// plainRepo hides InTx so the writer falls back to sequential saves
type plainRepo struct{ m *memRepo }

func (p plainRepo) Save(ctx context.Context, rec customer.Customer) (customer.Customer, error) {
	return p.m.Save(ctx, rec)
}

func fakeLine(f *gofakeit.Faker, id int) string {
	return strings.Join([]string{
		fmt.Sprint(id),
		f.FirstName(),
		f.LastName(),
		f.Email(),
		f.Gender(),
		f.Phone(),
		f.RandomString([]string{"NZ", "AU", "US", "FR"}),
		f.Date().Format("2006-01-02"),
	}, ",")
}

// writeCustomers writes a header and n generated lines; extra lines are appended as-is
func writeCustomers(c *quicktest.C, n int, extra ...string) string {
	f := gofakeit.New(7)
	lines := []string{strings.Join(customer.Fields, ",")}
	for i := 1; i <= n; i++ {
		lines = append(lines, fakeLine(f, i))
	}
	lines = append(lines, extra...)

	path := filepath.Join(c.TempDir(), "customers.csv")
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
	c.Assert(err, quicktest.IsNil)
	return path
}
