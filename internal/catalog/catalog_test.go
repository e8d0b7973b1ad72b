package catalog

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/thalib/xfields/internal/constants"
	"github.com/thalib/xfields/internal/database"
	xerrors "github.com/thalib/xfields/internal/errors"
	"github.com/thalib/xfields/internal/table"
	"github.com/thalib/xfields/internal/ulid"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	driver, err := database.NewDriver(database.Config{
		ConnectionString: "sqlite://" + filepath.Join(t.TempDir(), "catalog.db"),
		MaxOpenConns:     1,
		MaxIdleConns:     1,
		ConnMaxLifetime:  time.Minute,
	})
	if err != nil {
		t.Fatalf("NewDriver() error: %v", err)
	}
	if err := driver.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { driver.Close() })

	c := New(driver).WithTimeout(5 * time.Second)
	if _, err := c.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error: %v", err)
	}
	return c
}

func TestEnsureSchema(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	created, err := c.EnsureSchema(ctx)
	if err != nil {
		t.Fatalf("second EnsureSchema() error: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("Expected nothing created on an existing catalog, got %v", created)
	}

	tables, err := c.db.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables() error: %v", err)
	}
	want := []string{overridesTable, snapshotsTable, snapshotValuesTable}
	for _, name := range want {
		found := false
		for _, got := range tables {
			found = found || got == name
		}
		if !found {
			t.Errorf("Expected table %s in %v", name, tables)
		}
	}

	if _, err := c.db.Exec(ctx, "DROP TABLE "+snapshotsTable); err != nil {
		t.Fatalf("DROP TABLE error: %v", err)
	}
	created, err = c.EnsureSchema(ctx)
	if err != nil {
		t.Fatalf("EnsureSchema() after drop error: %v", err)
	}
	if len(created) != 1 || created[0] != snapshotsTable {
		t.Errorf("Expected only %s to be recreated, got %v", snapshotsTable, created)
	}
}

func TestNonFiniteValuesRoundTrip(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	stored := table.Overrides{
		constants.NameQElem:       math.NaN(),
		constants.NameCLight:      math.Inf(1),
		constants.NameAlpha:       math.Inf(-1),
		constants.NameRealEpsilon: math.SmallestNonzeroFloat64,
	}
	for name, v := range stored {
		if err := c.PutOverride(ctx, name, v, ""); err != nil {
			t.Fatalf("PutOverride(%s, %v) error: %v", name, v, err)
		}
	}

	got, err := c.Overrides(ctx)
	if err != nil {
		t.Fatalf("Overrides() error: %v", err)
	}
	if !math.IsNaN(got[constants.NameQElem]) {
		t.Errorf("Expected NaN QELEM, got %v", got[constants.NameQElem])
	}
	for _, name := range []constants.Name{constants.NameCLight, constants.NameAlpha, constants.NameRealEpsilon} {
		if got[name] != stored[name] {
			t.Errorf("%s: stored %v, read %v", name, stored[name], got[name])
		}
	}

	tbl, err := table.New(table.Overrides{constants.NameQElem: math.NaN()})
	if err != nil {
		t.Fatalf("table.New() error: %v", err)
	}
	if _, err := c.SaveSnapshot(ctx, tbl, ""); err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}
	loaded, err := c.LoadSnapshot(ctx, tbl.ID())
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if v := loaded.Values[constants.Index(constants.NameQElem)].Value; !math.IsNaN(v) {
		t.Errorf("Expected NaN QELEM in snapshot, got %v", v)
	}
	if v := loaded.Values[constants.Index(constants.NamePi)].Value; v != constants.Pi {
		t.Errorf("Expected exact PI in snapshot, got %v", v)
	}
}

func TestOverrides_PutListDelete(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	if err := c.PutOverride(ctx, constants.NameQElem, 1.0, "natural units"); err != nil {
		t.Fatalf("PutOverride() error: %v", err)
	}
	if err := c.PutOverride(ctx, constants.NameCLight, 3e8, ""); err != nil {
		t.Fatalf("PutOverride() error: %v", err)
	}
	// Replacing keeps a single row.
	if err := c.PutOverride(ctx, constants.NameQElem, 2.0, "replaced"); err != nil {
		t.Fatalf("PutOverride() error: %v", err)
	}

	stored, err := c.ListOverrides(ctx)
	if err != nil {
		t.Fatalf("ListOverrides() error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected 2 overrides, got %d", len(stored))
	}
	if stored[0].Name != constants.NameCLight || stored[1].Name != constants.NameQElem {
		t.Errorf("Expected overrides ordered by name, got %s, %s", stored[0].Name, stored[1].Name)
	}
	if stored[1].Value != 2.0 || stored[1].Note != "replaced" {
		t.Errorf("Expected replaced QELEM override, got %+v", stored[1])
	}

	if err := c.DeleteOverride(ctx, constants.NameCLight); err != nil {
		t.Fatalf("DeleteOverride() error: %v", err)
	}
	err = c.DeleteOverride(ctx, constants.NameCLight)
	if !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("Expected NOT_FOUND on second delete, got %v", err)
	}

	overrides, err := c.Overrides(ctx)
	if err != nil {
		t.Fatalf("Overrides() error: %v", err)
	}
	if len(overrides) != 1 || overrides[constants.NameQElem] != 2.0 {
		t.Errorf("Unexpected overrides: %v", overrides)
	}
}

func TestPutOverride_UnknownName(t *testing.T) {
	c := newTestCatalog(t)
	err := c.PutOverride(context.Background(), constants.Name("PLANCK"), 1, "")
	if !errors.Is(err, xerrors.ErrUnknownConstant) {
		t.Errorf("Expected UNKNOWN_CONSTANT, got %v", err)
	}
}

func TestCatalogAsSource(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	if err := c.PutOverride(ctx, constants.NameQElem, 1.0, ""); err != nil {
		t.Fatalf("PutOverride() error: %v", err)
	}
	if err := c.PutOverride(ctx, constants.NameCLight, 1.0, ""); err != nil {
		t.Fatalf("PutOverride() error: %v", err)
	}

	r := table.NewResolver(c)
	if err := r.Define(constants.NameCLight, 2.0); err != nil {
		t.Fatalf("Define() error: %v", err)
	}
	tbl, err := r.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if tbl.QElem() != 1.0 || tbl.Origin(constants.NameQElem) != table.OriginCatalog {
		t.Errorf("Expected QELEM from catalog, got %v (%s)", tbl.QElem(), tbl.Origin(constants.NameQElem))
	}
	if tbl.CLight() != 2.0 || tbl.Origin(constants.NameCLight) != table.OriginCaller {
		t.Errorf("Expected caller C_LIGHT to win, got %v (%s)", tbl.CLight(), tbl.Origin(constants.NameCLight))
	}
	if tbl.Pi() != constants.Pi {
		t.Errorf("Expected default PI, got %v", tbl.Pi())
	}
}

func TestSnapshot_SaveLoadReplay(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	original, err := table.New(table.Overrides{constants.NameQElem: 1.0})
	if err != nil {
		t.Fatalf("table.New() error: %v", err)
	}

	saved, err := c.SaveSnapshot(ctx, original, "natural")
	if err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}
	if saved.ID != original.ID() {
		t.Errorf("Expected snapshot ID %s, got %s", original.ID(), saved.ID)
	}

	loaded, err := c.LoadSnapshot(ctx, saved.ID)
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if loaded.Label != "natural" {
		t.Errorf("Expected label natural, got %q", loaded.Label)
	}
	if len(loaded.Values) != constants.Count {
		t.Fatalf("Expected %d values, got %d", constants.Count, len(loaded.Values))
	}
	for i, name := range constants.Names() {
		if loaded.Values[i].Name != name {
			t.Errorf("Value %d: expected %s, got %s", i, name, loaded.Values[i].Name)
		}
	}
	if loaded.Values[constants.Index(constants.NameQElem)].Origin != table.OriginCaller {
		t.Errorf("Expected stored QELEM origin caller, got %s", loaded.Values[constants.Index(constants.NameQElem)].Origin)
	}
	if !loaded.ResolvedAt.Equal(original.ResolvedAt().Truncate(time.Millisecond)) {
		t.Errorf("Expected resolved_at %v, got %v", original.ResolvedAt(), loaded.ResolvedAt)
	}

	recorded := loaded.Overridden()
	if len(recorded) != 1 || recorded[0].Name != constants.NameQElem || recorded[0].Origin != table.OriginCaller {
		t.Errorf("Expected recorded provenance [QELEM caller], got %+v", recorded)
	}

	replayed, err := table.NewResolver(loaded.Source()).Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if replayed.Values() != original.Values() {
		t.Errorf("Replay differs:\n got  %+v\n want %+v", replayed.Values(), original.Values())
	}
	if replayed.Origin(constants.NameQElem) != table.OriginSnapshot {
		t.Errorf("Expected replayed origin snapshot, got %s", replayed.Origin(constants.NameQElem))
	}
}

func TestSnapshot_Duplicate(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	tbl := table.Default()
	if _, err := c.SaveSnapshot(ctx, tbl, ""); err != nil {
		t.Fatalf("SaveSnapshot() error: %v", err)
	}
	_, err := c.SaveSnapshot(ctx, tbl, "")
	if !errors.Is(err, xerrors.New(xerrors.CodeDatabaseError, "")) {
		t.Errorf("Expected DATABASE_ERROR on duplicate snapshot, got %v", err)
	}
}

func TestLoadSnapshot_Errors(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"malformed id", "not-a-ulid", xerrors.ErrInvalidValue},
		{"unknown id", ulid.Generate(), xerrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.LoadSnapshot(ctx, tt.id)
			if !errors.Is(err, tt.want) {
				t.Errorf("LoadSnapshot(%q) error = %v, want %v", tt.id, err, tt.want)
			}
		})
	}
}

func TestListSnapshots(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	empty, err := c.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots() error: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no snapshots, got %d", len(empty))
	}

	first, _ := table.New(table.Overrides{constants.NameAlpha: 0.0073})
	second, _ := table.New(nil)
	for _, tbl := range []*table.Table{first, second} {
		if _, err := c.SaveSnapshot(ctx, tbl, ""); err != nil {
			t.Fatalf("SaveSnapshot() error: %v", err)
		}
	}

	list, err := c.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots() error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(list))
	}
	if list[0].ID != second.ID() || list[1].ID != first.ID() {
		t.Errorf("Expected newest first, got %s, %s", list[0].ID, list[1].ID)
	}
	if len(list[0].Values) != 0 {
		t.Error("Expected headers only")
	}
}

func TestSaveSnapshot_Nil(t *testing.T) {
	c := newTestCatalog(t)
	if _, err := c.SaveSnapshot(context.Background(), nil, ""); !errors.Is(err, xerrors.ErrInvalidValue) {
		t.Errorf("Expected INVALID_VALUE, got %v", err)
	}
}
