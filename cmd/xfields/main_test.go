package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/thalib/xfields/internal/catalog"
	"github.com/thalib/xfields/internal/constants"
	"github.com/thalib/xfields/internal/database"
	"github.com/thalib/xfields/internal/table"
)

type decodedReport struct {
	TableID    string `json:"table_id"`
	SnapshotID string `json:"snapshot_id"`
	Constants  []struct {
		Name   string  `json:"name"`
		Value  float64 `json:"value"`
		Origin string  `json:"origin"`
	} `json:"constants"`
	Check *struct {
		Consistent bool `json:"consistent"`
	} `json:"check"`
}

func (r decodedReport) entry(t *testing.T, name constants.Name) (float64, string) {
	t.Helper()
	for _, c := range r.Constants {
		if c.Name == string(name) {
			return c.Value, c.Origin
		}
	}
	t.Fatalf("constant %s missing from output", name)
	return 0, ""
}

// chdir changes the working directory for the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

// setupWorkdir runs the test in an empty directory with a config file that
// keeps the catalog inside it.
func setupWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)

	cfg := "logging:\n  level: error\ndatabase:\n  database: " + filepath.Join(dir, "data", "xfields.db") + "\n"
	path := filepath.Join(dir, "xfields.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decode(t *testing.T, out string) decodedReport {
	t.Helper()
	var r decodedReport
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("Failed to decode output: %v\n%s", err, out)
	}
	return r
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"defaults", nil, false},
		{"repeated set", []string{"--set", "QELEM=1", "-s", "C_LIGHT=1"}, false},
		{"yaml format", []string{"-f", "yaml"}, false},
		{"bad format", []string{"--format", "xml"}, true},
		{"positional argument", []string{"extra"}, true},
		{"unknown flag", []string{"--nope"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Errorf("parseFlags(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}

	opts, _ := parseFlags([]string{"--set", "QELEM=1", "-s", "C_LIGHT=1"}, &bytes.Buffer{})
	if len(opts.sets) != 2 {
		t.Errorf("Expected 2 --set values, got %v", opts.sets)
	}
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "--version")
	if code != exitOK || !strings.HasPrefix(out, "xfields ") {
		t.Errorf("Unexpected version output %q (exit %d)", out, code)
	}
}

func TestRun_Defaults(t *testing.T) {
	setupWorkdir(t)

	code, out, errOut := runCLI(t, "--format", "json")
	if code != exitOK {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}

	r := decode(t, out)
	if len(r.Constants) != constants.Count {
		t.Fatalf("Expected %d constants, got %d", constants.Count, len(r.Constants))
	}
	if v, origin := r.entry(t, constants.NameCLight); v != 299792458.0 || origin != string(table.OriginDefault) {
		t.Errorf("Expected default C_LIGHT, got %v (%s)", v, origin)
	}
	if r.Check != nil {
		t.Error("Expected no check section without --check")
	}
}

func TestRun_SetOverride(t *testing.T) {
	setupWorkdir(t)
	t.Setenv("XFIELDS_CONSTANTS_QELEM", "2.0")
	t.Setenv("XFIELDS_CONSTANTS_ALPHA", "0.0073")

	code, out, errOut := runCLI(t, "-f", "json", "--set", "QELEM=1.0", "--set", "QELEM=5.0")
	if code != exitOK {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}

	r := decode(t, out)
	if v, origin := r.entry(t, constants.NameQElem); v != 1.0 || origin != string(table.OriginCaller) {
		t.Errorf("Expected first --set QELEM to win, got %v (%s)", v, origin)
	}
	if v, origin := r.entry(t, constants.NameAlpha); v != 0.0073 || origin != string(table.OriginEnv) {
		t.Errorf("Expected ALPHA from environment, got %v (%s)", v, origin)
	}
	if v, _ := r.entry(t, constants.NameMProtonGeVPerC); v != 0.93827208816 {
		t.Errorf("Expected default MPROTON_GEVPERC, got %v", v)
	}
}

func TestRun_Errors(t *testing.T) {
	setupWorkdir(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown constant", []string{"--set", "PLANCK=1"}},
		{"bad value", []string{"--set", "QELEM=abc"}},
		{"missing config", []string{"--config", "missing.yaml"}},
		{"malformed snapshot id", []string{"--replay", "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			if code != exitError {
				t.Errorf("Expected exit %d, got %d", exitError, code)
			}
			if errOut == "" {
				t.Error("Expected an error message on stderr")
			}
		})
	}
}

// TestRun_SourcePrecedence resolves one name per layer with the catalog
// enabled: --set > environment > config file > catalog > default.
func TestRun_SourcePrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	dbPath := filepath.Join(dir, "xfields.db")

	cfg := "logging:\n  level: error\n" +
		"database:\n  database: " + dbPath + "\n" +
		"catalog:\n  enabled: true\n" +
		"constants:\n  QELEM: 3.0\n  ALPHA: 3.0\n  C_LIGHT: 3.0\n  PI: 3.0\n"
	if err := os.WriteFile(filepath.Join(dir, "xfields.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	driver, err := database.NewDriver(database.Config{ConnectionString: "sqlite://" + dbPath})
	if err != nil {
		t.Fatalf("NewDriver() error: %v", err)
	}
	if err := driver.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	cat := catalog.New(driver)
	if _, err := cat.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error: %v", err)
	}
	for _, name := range []constants.Name{
		constants.NameQElem, constants.NameAlpha, constants.NameCLight,
		constants.NamePi, constants.NameHBarGeVs,
	} {
		if err := cat.PutOverride(context.Background(), name, 4.0, ""); err != nil {
			t.Fatalf("PutOverride(%s) error: %v", name, err)
		}
	}
	driver.Close()

	t.Setenv("XFIELDS_CONSTANTS_QELEM", "2.0")
	t.Setenv("XFIELDS_CONSTANTS_C_LIGHT", "2.0")
	t.Setenv("XFIELDS_CONSTANTS_PI", "2.0")

	code, out, errOut := runCLI(t, "-f", "json", "--set", "PI=1.0")
	if code != exitOK {
		t.Fatalf("Expected exit 0, got %d: %s", code, errOut)
	}
	r := decode(t, out)

	tests := []struct {
		name   constants.Name
		value  float64
		origin table.Origin
	}{
		{constants.NamePi, 1.0, table.OriginCaller},
		{constants.NameQElem, 2.0, table.OriginEnv},
		{constants.NameCLight, 2.0, table.OriginEnv},
		{constants.NameAlpha, 3.0, table.OriginConfig},
		{constants.NameHBarGeVs, 4.0, table.OriginCatalog},
		{constants.NameSqrtTwo, constants.SqrtTwo, table.OriginDefault},
	}
	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			v, origin := r.entry(t, tt.name)
			if v != tt.value || origin != string(tt.origin) {
				t.Errorf("Expected %v (%s), got %v (%s)", tt.value, tt.origin, v, origin)
			}
		})
	}
}

func TestRun_NonFiniteSnapshot(t *testing.T) {
	setupWorkdir(t)

	code, out, errOut := runCLI(t, "-f", "yaml", "--snapshot", "--set", "QELEM=NaN")
	if code != exitOK {
		t.Fatalf("--snapshot with NaN exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "snapshot_id:") {
		t.Errorf("Expected snapshot id in output:\n%s", out)
	}
}

func TestRun_Check(t *testing.T) {
	setupWorkdir(t)

	code, out, _ := runCLI(t, "--check")
	if code != exitOK {
		t.Fatalf("Expected exit 0 for default table, got %d", code)
	}
	if !strings.Contains(out, "Consistency check passed") {
		t.Errorf("Expected pass message, got:\n%s", out)
	}

	code, out, _ = runCLI(t, "--check", "--set", "PI=3")
	if code != exitInconsistent {
		t.Fatalf("Expected exit %d for broken PI, got %d", exitInconsistent, code)
	}
	if !strings.Contains(out, "SQRT_PI^2=PI") {
		t.Errorf("Expected identity in output, got:\n%s", out)
	}
}

func TestRun_SnapshotAndReplay(t *testing.T) {
	setupWorkdir(t)

	code, out, errOut := runCLI(t, "-f", "json", "--snapshot", "--label", "natural", "--set", "QELEM=1.0")
	if code != exitOK {
		t.Fatalf("--snapshot exit %d: %s", code, errOut)
	}
	saved := decode(t, out)
	if saved.SnapshotID == "" || saved.SnapshotID != saved.TableID {
		t.Fatalf("Expected snapshot ID equal to table ID, got %q / %q", saved.SnapshotID, saved.TableID)
	}

	code, out, errOut = runCLI(t, "-f", "json", "--replay", saved.SnapshotID)
	if code != exitOK {
		t.Fatalf("--replay exit %d: %s", code, errOut)
	}
	replayed := decode(t, out)
	for _, c := range saved.Constants {
		v, origin := replayed.entry(t, constants.Name(c.Name))
		if v != c.Value {
			t.Errorf("%s: replayed %v, saved %v", c.Name, v, c.Value)
		}
		if origin != string(table.OriginSnapshot) {
			t.Errorf("%s: expected snapshot origin, got %s", c.Name, origin)
		}
	}

	// --set still wins over the replayed snapshot.
	code, out, _ = runCLI(t, "-f", "json", "--replay", saved.SnapshotID, "--set", "QELEM=3.0")
	if code != exitOK {
		t.Fatalf("--replay --set exit %d", code)
	}
	if v, origin := decode(t, out).entry(t, constants.NameQElem); v != 3.0 || origin != string(table.OriginCaller) {
		t.Errorf("Expected --set QELEM over snapshot, got %v (%s)", v, origin)
	}

	code, out, _ = runCLI(t, "-f", "json", "--list-snapshots")
	if code != exitOK {
		t.Fatalf("--list-snapshots exit %d", code)
	}
	var snaps []catalog.Snapshot
	if err := json.Unmarshal([]byte(out), &snaps); err != nil {
		t.Fatalf("Failed to decode snapshots: %v", err)
	}
	if len(snaps) != 1 || snaps[0].ID != saved.SnapshotID || snaps[0].Label != "natural" {
		t.Errorf("Unexpected snapshot list: %+v", snaps)
	}
}

func TestRun_YAML(t *testing.T) {
	setupWorkdir(t)

	code, out, _ := runCLI(t, "-f", "yaml")
	if code != exitOK {
		t.Fatalf("Expected exit 0, got %d", code)
	}
	if !strings.Contains(out, "name: C_LIGHT") || !strings.Contains(out, "table_id:") {
		t.Errorf("Unexpected yaml output:\n%s", out)
	}
}

func TestRenderSnapshots_Text(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	var empty bytes.Buffer
	if err := renderSnapshots(&empty, formatText, nil, now); err != nil {
		t.Fatalf("renderSnapshots() error: %v", err)
	}
	if strings.TrimSpace(empty.String()) != "No snapshots" {
		t.Errorf("Unexpected output for empty list: %q", empty.String())
	}

	var buf bytes.Buffer
	snaps := []catalog.Snapshot{{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Label: "nightly", ResolvedAt: now.Add(-3 * time.Minute)}}
	if err := renderSnapshots(&buf, formatText, snaps, now); err != nil {
		t.Fatalf("renderSnapshots() error: %v", err)
	}
	for _, want := range []string{"01ARZ3NDEKTSV4RRFFQ69G5FAV", "3 minutes ago", "nightly"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected %q in output:\n%s", want, buf.String())
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{constants.CLight, "2.99792458e+08"},
		{constants.QElem, "1.60217662e-19"},
		{1, "1"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
