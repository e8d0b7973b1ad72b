package database

import (
	"context"
	"fmt"
)

// tableListQueries returns the user tables of the current database or
// schema, sorted by name.
var tableListQueries = map[DialectType]string{
	DialectSQLite:   `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
	DialectMySQL:    `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`,
	DialectPostgres: `SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema() ORDER BY tablename`,
}

// ListTables returns the names of the user tables in the connected database.
func (d *baseDriver) ListTables(ctx context.Context) ([]string, error) {
	query, ok := tableListQueries[d.dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported database dialect: %s", d.dialect)
	}

	rows, err := d.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s tables: %w", d.dialect, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
