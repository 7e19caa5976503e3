package db

import (
	"context"
	"fmt"
)

// TableSchema represents the structure of a database table
type TableSchema struct {
	Name    string
	Columns []ColumnSchema
	HasID   bool // Indicates if table has an id primary key for upsert logic
}

// ColumnSchema represents the structure of a table column
type ColumnSchema struct {
	Name      string
	Type      string
	IsID      bool // True if this is the id primary key
	Nullable  bool
	MaxLength int // Maximum length for varchar fields
}

// VerifyTable checks that the destination table exists with every mapped
// column and an id primary key. Tables are never created or altered.
func (c *Connection) VerifyTable(ctx context.Context) error {
	schema, err := c.GetSchema(ctx)
	if err != nil {
		return err
	}

	present := make(map[string]ColumnSchema, len(schema.Columns))
	for _, col := range schema.Columns {
		present[col.Name] = col
	}
	for _, name := range Columns {
		if _, ok := present[name]; !ok {
			return fmt.Errorf("table '%s' is missing column '%s'", schema.Name, name)
		}
	}
	if !schema.HasID {
		return fmt.Errorf("table '%s' needs a primary key on 'id' for upserts", schema.Name)
	}
	return nil
}

// GetSchema retrieves the schema of the destination table
func (c *Connection) GetSchema(ctx context.Context) (*TableSchema, error) {
	var schema *TableSchema
	var err error
	switch c.Type {
	case MySQL:
		schema, err = c.getMySQLSchema(ctx)
	case PostgreSQL:
		schema, err = c.getPostgresSchema(ctx)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.Type)
	}
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, fmt.Errorf("table '%s' does not exist in destination database", c.table())
	}
	return schema, nil
}

func (c *Connection) getMySQLSchema(ctx context.Context) (*TableSchema, error) {
	// Get current database name
	var dbName string
	err := c.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to get database name: %w", err)
	}

	query := `
        SELECT 
            t.TABLE_NAME,
            c.COLUMN_NAME,
            c.DATA_TYPE,
            CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END as IS_NULLABLE,
            CASE WHEN c.COLUMN_KEY = 'PRI' THEN 1 ELSE 0 END as IS_PRIMARY,
            COALESCE(c.CHARACTER_MAXIMUM_LENGTH, 0) as MAX_LENGTH
        FROM information_schema.TABLES t
        JOIN information_schema.COLUMNS c 
            ON t.TABLE_NAME = c.TABLE_NAME AND t.TABLE_SCHEMA = c.TABLE_SCHEMA
        WHERE t.TABLE_SCHEMA = ?
            AND t.TABLE_NAME = ?
            AND t.TABLE_TYPE = 'BASE TABLE'
        ORDER BY c.ORDINAL_POSITION`

	return c.processSchemaRows(ctx, query, dbName, c.table())
}

func (c *Connection) getPostgresSchema(ctx context.Context) (*TableSchema, error) {
	query := `
        SELECT 
            t.table_name,
            c.column_name,
            c.data_type,
            CASE WHEN c.is_nullable = 'YES' THEN 1 ELSE 0 END as is_nullable,
            CASE WHEN pk.column_name IS NOT NULL THEN 1 ELSE 0 END as is_primary,
            COALESCE(c.character_maximum_length, 0) as max_length
        FROM information_schema.tables t
        JOIN information_schema.columns c 
            ON t.table_name = c.table_name AND t.table_schema = c.table_schema
        LEFT JOIN (
            SELECT tc.table_name, kcu.column_name
            FROM information_schema.table_constraints tc
            JOIN information_schema.key_column_usage kcu
                ON tc.constraint_name = kcu.constraint_name
            WHERE tc.constraint_type = 'PRIMARY KEY'
        ) pk ON t.table_name = pk.table_name 
            AND c.column_name = pk.column_name
        WHERE t.table_schema = 'public'
            AND t.table_name = $1
            AND t.table_type = 'BASE TABLE'
        ORDER BY c.ordinal_position`

	return c.processSchemaRows(ctx, query, c.table())
}

// processSchemaRows scans the columns of a single table. It returns nil when
// the query matched no table.
func (c *Connection) processSchemaRows(ctx context.Context, query string, args ...interface{}) (*TableSchema, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema: %w", err)
	}
	defer rows.Close()

	var schema *TableSchema
	for rows.Next() {
		var tableName, columnName, dataType string
		var isNullable, isPrimary bool
		var maxLength int

		if err := rows.Scan(&tableName, &columnName, &dataType, &isNullable, &isPrimary, &maxLength); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		if schema == nil {
			schema = &TableSchema{Name: tableName}
		}

		column := ColumnSchema{
			Name:      columnName,
			Type:      dataType,
			IsID:      isPrimary && columnName == "id",
			Nullable:  isNullable,
			MaxLength: maxLength,
		}
		schema.HasID = schema.HasID || column.IsID
		schema.Columns = append(schema.Columns, column)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema rows: %w", err)
	}
	return schema, nil
}
