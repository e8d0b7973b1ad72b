// Package catalog stores constant overrides and resolved-table snapshots in
// a SQL database. A Catalog is itself a table.Source, so overrides kept in
// the database take part in resolution like any other source.
package catalog

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/thalib/xfields/internal/constants"
	"github.com/thalib/xfields/internal/database"
	xerrors "github.com/thalib/xfields/internal/errors"
	"github.com/thalib/xfields/internal/logging"
	"github.com/thalib/xfields/internal/table"
	"github.com/thalib/xfields/internal/ulid"
)

const (
	overridesTable      = "xf_overrides"
	snapshotsTable      = "xf_snapshots"
	snapshotValuesTable = "xf_snapshot_values"
)

// StoredOverride is a row of the override catalog.
type StoredOverride struct {
	Name      constants.Name `json:"name" yaml:"name"`
	Value     float64        `json:"value" yaml:"value"`
	Note      string         `json:"note,omitempty" yaml:"note,omitempty"`
	UpdatedAt time.Time      `json:"updated_at" yaml:"updated_at"`
}

// Catalog persists overrides and snapshots.
type Catalog struct {
	db      database.Driver
	logger  *logging.Logger
	timeout time.Duration
}

// New creates a catalog on an already connected driver.
func New(db database.Driver) *Catalog {
	return &Catalog{db: db, logger: logging.Nop()}
}

// WithLogger sets the logger.
func (c *Catalog) WithLogger(logger *logging.Logger) *Catalog {
	c.logger = logger
	return c
}

// WithTimeout bounds every catalog operation. Zero disables the bound.
func (c *Catalog) WithTimeout(d time.Duration) *Catalog {
	c.timeout = d
	return c
}

func (c *Catalog) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// encodeValue renders v as the shortest text that parses back to the same
// value. NaN and the infinities survive every dialect, unlike a float column
// (SQLite binds NaN as NULL).
func encodeValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func decodeValue(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, xerrors.NewDatabaseError(fmt.Errorf("corrupt stored value %q for %s: %w", raw, name, err))
	}
	return v, nil
}

// ph returns the n-th bind placeholder.
func (c *Catalog) ph(n int) string {
	return c.db.Placeholder(n)
}

var schema = []struct {
	table string
	ddl   string
}{
	{overridesTable, `CREATE TABLE IF NOT EXISTS ` + overridesTable + ` (
			name VARCHAR(64) NOT NULL PRIMARY KEY,
			value VARCHAR(32) NOT NULL,
			note VARCHAR(255) NOT NULL DEFAULT '',
			updated_at BIGINT NOT NULL
		)`},
	{snapshotsTable, `CREATE TABLE IF NOT EXISTS ` + snapshotsTable + ` (
			id CHAR(26) NOT NULL PRIMARY KEY,
			label VARCHAR(255) NOT NULL DEFAULT '',
			resolved_at BIGINT NOT NULL
		)`},
	{snapshotValuesTable, `CREATE TABLE IF NOT EXISTS ` + snapshotValuesTable + ` (
			snapshot_id CHAR(26) NOT NULL,
			name VARCHAR(64) NOT NULL,
			value VARCHAR(32) NOT NULL,
			origin VARCHAR(16) NOT NULL,
			PRIMARY KEY (snapshot_id, name)
		)`},
}

// EnsureSchema creates the catalog tables that are missing and returns
// their names. An up to date catalog yields an empty list.
func (c *Catalog) EnsureSchema(ctx context.Context) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	existing, err := c.db.ListTables(ctx)
	if err != nil {
		return nil, xerrors.NewDatabaseError(err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	var created []string
	for _, t := range schema {
		if present[t.table] {
			continue
		}
		if _, err := c.db.Exec(ctx, t.ddl); err != nil {
			return created, xerrors.NewDatabaseError(fmt.Errorf("failed to create %s: %w", t.table, err))
		}
		created = append(created, t.table)
	}

	if len(created) > 0 {
		c.logger.Infof("Created catalog tables %v (%s)", created, c.db.Dialect())
	} else {
		c.logger.Debugf("Catalog schema present (%s)", c.db.Dialect())
	}
	return created, nil
}

// PutOverride stores or replaces the override for name.
func (c *Catalog) PutOverride(ctx context.Context, name constants.Name, value float64, note string) error {
	if !name.Valid() {
		return xerrors.NewUnknownConstantError(string(name))
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tx, err := c.db.BeginTx(ctx)
	if err != nil {
		return xerrors.NewDatabaseError(err)
	}
	defer tx.Rollback()

	del := fmt.Sprintf(`DELETE FROM %s WHERE name = %s`, overridesTable, c.ph(1))
	if _, err := tx.ExecContext(ctx, del, string(name)); err != nil {
		return xerrors.NewDatabaseError(err)
	}

	ins := fmt.Sprintf(`INSERT INTO %s (name, value, note, updated_at) VALUES (%s, %s, %s, %s)`,
		overridesTable, c.ph(1), c.ph(2), c.ph(3), c.ph(4))
	if _, err := tx.ExecContext(ctx, ins, string(name), encodeValue(value), note, time.Now().UnixMilli()); err != nil {
		return xerrors.NewDatabaseError(err)
	}

	if err := tx.Commit(); err != nil {
		return xerrors.NewDatabaseError(err)
	}

	c.logger.WithField("constant", string(name)).Infof("Stored override %s = %g", name, value)
	return nil
}

// DeleteOverride removes the override for name.
func (c *Catalog) DeleteOverride(ctx context.Context, name constants.Name) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE name = %s`, overridesTable, c.ph(1))
	res, err := c.db.Exec(ctx, query, string(name))
	if err != nil {
		return xerrors.NewDatabaseError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return xerrors.NewDatabaseError(err)
	}
	if n == 0 {
		return xerrors.NewNotFoundError(fmt.Sprintf("override %s", name))
	}
	return nil
}

// ListOverrides returns every stored override ordered by name.
func (c *Catalog) ListOverrides(ctx context.Context) ([]StoredOverride, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT name, value, note, updated_at FROM %s ORDER BY name`, overridesTable)
	rows, err := c.db.Query(ctx, query)
	if err != nil {
		return nil, xerrors.NewDatabaseError(err)
	}
	defer rows.Close()

	var out []StoredOverride
	for rows.Next() {
		var (
			o          StoredOverride
			name, text string
			updated    int64
		)
		if err := rows.Scan(&name, &text, &o.Note, &updated); err != nil {
			return nil, xerrors.NewDatabaseError(err)
		}
		value, err := decodeValue(name, text)
		if err != nil {
			return nil, err
		}
		o.Name = constants.Name(name)
		o.Value = value
		o.UpdatedAt = time.UnixMilli(updated)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.NewDatabaseError(err)
	}
	return out, nil
}

// Origin implements table.Source.
func (c *Catalog) Origin() table.Origin {
	return table.OriginCatalog
}

// Overrides implements table.Source.
func (c *Catalog) Overrides(ctx context.Context) (table.Overrides, error) {
	stored, err := c.ListOverrides(ctx)
	if err != nil {
		return nil, err
	}
	out := make(table.Overrides, len(stored))
	for _, o := range stored {
		out[o.Name] = o.Value
	}
	return out, nil
}

func isNoRows(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}

// validateID rejects malformed snapshot IDs before they reach the database.
func validateID(id string) error {
	if err := ulid.Validate(id); err != nil {
		return xerrors.New(xerrors.CodeInvalidValue, fmt.Sprintf("invalid snapshot id %q", id)).Wrap(err)
	}
	return nil
}
