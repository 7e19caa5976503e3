package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/andys/customer_import/customer"
	"github.com/andys/customer_import/worker"
	"go.uber.org/zap"
)

// Columns are the destination columns, in customer.Fields order
var Columns = []string{"id", "first_name", "last_name", "email", "gender", "contact_no", "country", "dob"}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Save upserts a customer keyed on id
func (c *Connection) Save(ctx context.Context, rec customer.Customer) (customer.Customer, error) {
	if c.db == nil {
		return rec, fmt.Errorf("sql: database is closed")
	}
	return c.save(ctx, c.db, rec)
}

// InTx runs fn with a repository bound to a single transaction.
// The transaction is rolled back if fn fails.
func (c *Connection) InTx(ctx context.Context, fn func(repo worker.Repository) error) error {
	if c.db == nil {
		return fmt.Errorf("sql: database is closed")
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txRepository{conn: c, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txRepository struct {
	conn *Connection
	tx   *sql.Tx
}

func (t *txRepository) Save(ctx context.Context, rec customer.Customer) (customer.Customer, error) {
	return t.conn.save(ctx, t.tx, rec)
}

func (c *Connection) save(ctx context.Context, ex execer, rec customer.Customer) (customer.Customer, error) {
	query, err := c.upsertQuery()
	if err != nil {
		return rec, err
	}

	if c.cfg.Verbose {
		c.logger.Debug("executing SQL", zap.String("query", query), zap.String("id", rec.ID))
	}

	if _, err := ex.ExecContext(ctx, query, values(rec)...); err != nil {
		return rec, fmt.Errorf("failed to execute query: %s, error: %w", query, err)
	}
	return rec, nil
}

func values(rec customer.Customer) []any {
	return []any{
		rec.ID,
		rec.FirstName,
		rec.LastName,
		rec.Email,
		rec.Gender,
		rec.ContactNo,
		rec.Country,
		rec.DOB,
	}
}

func (c *Connection) upsertQuery() (string, error) {
	table := escapeIdentifier(c.table(), c.Type)
	columns := strings.Join(escapeIdentifiers(Columns, c.Type), ", ")

	placeholders := make([]string, len(Columns))
	updateClauses := make([]string, 0, len(Columns)-1)
	for i, col := range Columns {
		if c.Type == PostgreSQL {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
		if col == "id" {
			continue
		}
		name := escapeIdentifier(col, c.Type)
		switch c.Type {
		case MySQL:
			updateClauses = append(updateClauses, fmt.Sprintf("%s = VALUES(%s)", name, name))
		case PostgreSQL:
			updateClauses = append(updateClauses, fmt.Sprintf("%s = EXCLUDED.%s", name, name))
		}
	}

	switch c.Type {
	case MySQL:
		return fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
			table, columns, strings.Join(placeholders, ", "), strings.Join(updateClauses, ", "),
		), nil
	case PostgreSQL:
		return fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
			table, columns, strings.Join(placeholders, ", "),
			escapeIdentifier("id", c.Type), strings.Join(updateClauses, ", "),
		), nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", c.Type)
	}
}

func escapeIdentifier(identifier string, dbType DBType) string {
	switch dbType {
	case MySQL:
		return fmt.Sprintf("`%s`", identifier)
	case PostgreSQL:
		return fmt.Sprintf(`"%s"`, identifier)
	default:
		return identifier
	}
}

func escapeIdentifiers(identifiers []string, dbType DBType) []string {
	escaped := make([]string, len(identifiers))
	for i, id := range identifiers {
		escaped[i] = escapeIdentifier(id, dbType)
	}
	return escaped
}
