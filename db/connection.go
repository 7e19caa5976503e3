package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/andys/customer_import/config"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type DBType string

const (
	MySQL      DBType = "mysql"
	PostgreSQL DBType = "postgres"
)

// Connection represents a database connection
type Connection struct {
	db     *sql.DB
	Type   DBType
	cfg    *config.Config
	logger *zap.Logger
}

// Connect establishes a database connection from a URL string
func Connect(dbURL string, cfg *config.Config, logger *zap.Logger) (*Connection, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	conn := Connection{cfg: cfg, logger: logger}
	if conn.logger == nil {
		conn.logger = zap.NewNop()
	}
	var dsn string

	switch u.Scheme {
	case "mysql":
		conn.Type = MySQL
		// Convert URL format to DSN format
		database := strings.TrimPrefix(u.Path, "/")
		dsn = fmt.Sprintf("%s@tcp(%s)/%s", u.User.String(), u.Host, database)
		if u.RawQuery != "" {
			dsn += "?" + u.RawQuery
		}

	case "postgres", "postgresql":
		conn.Type = PostgreSQL
		// PostgreSQL can use the URL directly
		dsn = dbURL

	default:
		return nil, fmt.Errorf("unsupported database type: %s", u.Scheme)
	}

	db, err := sql.Open(string(conn.Type), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if cfg.WorkerCount > 0 {
		// one connection per chunk worker
		db.SetMaxOpenConns(cfg.WorkerCount)
		db.SetMaxIdleConns(cfg.WorkerCount)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.db = db
	return &conn, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// GetDB returns the underlying *sql.DB instance
func (c *Connection) GetDB() *sql.DB {
	return c.db
}

func (c *Connection) table() string {
	if c.cfg.Table == "" {
		return config.DefaultTable
	}
	return c.cfg.Table
}
