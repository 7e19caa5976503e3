package db

import (
	"context"
	"strings"

	"github.com/andys/customer_import/config"
	"github.com/andys/customer_import/worker"
	"go.uber.org/zap"
)

// Store is a destination the import can write to
type Store interface {
	worker.TxRepository
	VerifyTable(ctx context.Context) error
	Close() error
}

// Open connects to the destination named by dbURL. memory:// gives an in-process store.
func Open(dbURL string, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if strings.HasPrefix(dbURL, "memory://") {
		return NewMemory(), nil
	}
	conn, err := Connect(dbURL, cfg, logger)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
