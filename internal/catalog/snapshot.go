package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/thalib/xfields/internal/constants"
	xerrors "github.com/thalib/xfields/internal/errors"
	"github.com/thalib/xfields/internal/table"
)

// SnapshotValue is one stored constant of a snapshot.
type SnapshotValue struct {
	Name   constants.Name `json:"name" yaml:"name"`
	Value  float64        `json:"value" yaml:"value"`
	Origin table.Origin   `json:"origin" yaml:"origin"`
}

// Snapshot is a persisted resolved table.
type Snapshot struct {
	ID         string          `json:"id" yaml:"id"`
	Label      string          `json:"label,omitempty" yaml:"label,omitempty"`
	ResolvedAt time.Time       `json:"resolved_at" yaml:"resolved_at"`
	Values     []SnapshotValue `json:"values,omitempty" yaml:"values,omitempty"`
}

// Overrides returns every stored value keyed by name.
func (s *Snapshot) Overrides() table.Overrides {
	out := make(table.Overrides, len(s.Values))
	for _, v := range s.Values {
		out[v.Name] = v.Value
	}
	return out
}

// Overridden returns the values that were not defaults when the snapshot
// was taken, with their recorded origin.
func (s *Snapshot) Overridden() []SnapshotValue {
	var out []SnapshotValue
	for _, v := range s.Values {
		if v.Origin != table.OriginDefault {
			out = append(out, v)
		}
	}
	return out
}

// Source returns a table.Source that replays the snapshot. Every stored
// value is defined, so a replay reproduces the original table even where
// the original value was a default. The replayed table labels all entries
// with table.OriginSnapshot; the recorded provenance stays on the Snapshot
// (see Overridden).
func (s *Snapshot) Source() table.Source {
	return table.NewStaticSource(table.OriginSnapshot, s.Overrides())
}

// SaveSnapshot persists t under its table ID.
func (c *Catalog) SaveSnapshot(ctx context.Context, t *table.Table, label string) (*Snapshot, error) {
	if t == nil {
		return nil, xerrors.New(xerrors.CodeInvalidValue, "cannot snapshot a nil table")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	snap := &Snapshot{
		ID:         t.ID(),
		Label:      label,
		ResolvedAt: t.ResolvedAt(),
	}
	for _, e := range t.Entries() {
		snap.Values = append(snap.Values, SnapshotValue{Name: e.Name, Value: e.Value, Origin: e.Origin})
	}

	tx, err := c.db.BeginTx(ctx)
	if err != nil {
		return nil, xerrors.NewDatabaseError(err)
	}
	defer tx.Rollback()

	head := fmt.Sprintf(`INSERT INTO %s (id, label, resolved_at) VALUES (%s, %s, %s)`,
		snapshotsTable, c.ph(1), c.ph(2), c.ph(3))
	if _, err := tx.ExecContext(ctx, head, snap.ID, snap.Label, snap.ResolvedAt.UnixMilli()); err != nil {
		return nil, xerrors.NewDatabaseError(fmt.Errorf("failed to insert snapshot %s: %w", snap.ID, err))
	}

	row := fmt.Sprintf(`INSERT INTO %s (snapshot_id, name, value, origin) VALUES (%s, %s, %s, %s)`,
		snapshotValuesTable, c.ph(1), c.ph(2), c.ph(3), c.ph(4))
	for _, v := range snap.Values {
		if _, err := tx.ExecContext(ctx, row, snap.ID, string(v.Name), encodeValue(v.Value), string(v.Origin)); err != nil {
			return nil, xerrors.NewDatabaseError(fmt.Errorf("failed to insert %s: %w", v.Name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, xerrors.NewDatabaseError(err)
	}

	c.logger.WithField("snapshot_id", snap.ID).Infof("Saved snapshot with %d values", len(snap.Values))
	return snap, nil
}

// LoadSnapshot reads a snapshot and its values.
func (c *Catalog) LoadSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	snap := &Snapshot{ID: id}
	var resolvedAt int64
	head := fmt.Sprintf(`SELECT label, resolved_at FROM %s WHERE id = %s`, snapshotsTable, c.ph(1))
	if err := c.db.QueryRow(ctx, head, id).Scan(&snap.Label, &resolvedAt); err != nil {
		if isNoRows(err) {
			return nil, xerrors.NewNotFoundError(fmt.Sprintf("snapshot %s", id))
		}
		return nil, xerrors.NewDatabaseError(err)
	}
	snap.ResolvedAt = time.UnixMilli(resolvedAt)

	query := fmt.Sprintf(`SELECT name, value, origin FROM %s WHERE snapshot_id = %s`, snapshotValuesTable, c.ph(1))
	rows, err := c.db.Query(ctx, query, id)
	if err != nil {
		return nil, xerrors.NewDatabaseError(err)
	}
	defer rows.Close()

	byName := make(map[constants.Name]SnapshotValue, constants.Count)
	for rows.Next() {
		var name, text, origin string
		if err := rows.Scan(&name, &text, &origin); err != nil {
			return nil, xerrors.NewDatabaseError(err)
		}
		value, err := decodeValue(name, text)
		if err != nil {
			return nil, err
		}
		byName[constants.Name(name)] = SnapshotValue{Name: constants.Name(name), Value: value, Origin: table.Origin(origin)}
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.NewDatabaseError(err)
	}

	// Keep table order rather than storage order.
	for _, name := range constants.Names() {
		if v, ok := byName[name]; ok {
			snap.Values = append(snap.Values, v)
			delete(byName, name)
		}
	}
	for name := range byName {
		return nil, xerrors.NewUnknownConstantError(string(name)).WithDetails(map[string]any{"snapshot_id": id})
	}

	return snap, nil
}

// ListSnapshots returns snapshot headers, newest first. Values are not loaded.
func (c *Catalog) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT id, label, resolved_at FROM %s ORDER BY id DESC`, snapshotsTable)
	rows, err := c.db.Query(ctx, query)
	if err != nil {
		return nil, xerrors.NewDatabaseError(err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var resolvedAt int64
		if err := rows.Scan(&s.ID, &s.Label, &resolvedAt); err != nil {
			return nil, xerrors.NewDatabaseError(err)
		}
		s.ResolvedAt = time.UnixMilli(resolvedAt)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.NewDatabaseError(err)
	}
	return out, nil
}
