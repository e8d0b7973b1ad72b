package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"go.yaml.in/yaml/v3"

	"github.com/thalib/xfields/internal/catalog"
	"github.com/thalib/xfields/internal/consistency"
	"github.com/thalib/xfields/internal/table"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type report struct {
	Table      *table.Table
	SnapshotID string
	Check      *consistency.CheckResult
}

// reportDoc is the json/yaml shape of a report.
type reportDoc struct {
	TableID    string                   `json:"table_id" yaml:"table_id"`
	ResolvedAt time.Time                `json:"resolved_at" yaml:"resolved_at"`
	Constants  []table.Entry            `json:"constants" yaml:"constants"`
	SnapshotID string                   `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	Check      *consistency.CheckResult `json:"check,omitempty" yaml:"check,omitempty"`
}

func (r *report) doc() reportDoc {
	return reportDoc{
		TableID:    r.Table.ID(),
		ResolvedAt: r.Table.ResolvedAt(),
		Constants:  r.Table.Entries(),
		SnapshotID: r.SnapshotID,
		Check:      r.Check,
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func renderReport(w io.Writer, format string, r *report) error {
	switch format {
	case formatJSON:
		return encodeJSON(w, r.doc())
	case formatYAML:
		return encodeYAML(w, r.doc())
	}

	fmt.Fprintf(w, "Table %s (resolved %s)\n\n", r.Table.ID(), r.Table.ResolvedAt().Format(time.RFC3339))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVALUE\tUNIT\tORIGIN")
	for _, e := range r.Table.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, formatValue(e.Value), e.Unit, e.Origin)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.SnapshotID != "" {
		fmt.Fprintf(w, "\nSnapshot: %s\n", r.SnapshotID)
	}

	if r.Check != nil {
		fmt.Fprintln(w)
		if r.Check.Consistent {
			fmt.Fprintf(w, "✓ Consistency check passed (%d checks)\n", r.Check.Checked)
		} else {
			fmt.Fprintf(w, "Found %d consistency issue(s):\n", len(r.Check.Issues))
			for _, issue := range r.Check.Issues {
				fmt.Fprintf(w, "  ✗ %s %s: %s\n", issue.Type, issue.Name, issue.Description)
			}
		}
	}
	return nil
}

func renderSnapshots(w io.Writer, format string, snaps []catalog.Snapshot, now time.Time) error {
	if snaps == nil {
		snaps = []catalog.Snapshot{}
	}

	switch format {
	case formatJSON:
		return encodeJSON(w, snaps)
	case formatYAML:
		return encodeYAML(w, snaps)
	}

	if len(snaps) == 0 {
		fmt.Fprintln(w, "No snapshots")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRESOLVED\tLABEL")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, humanize.RelTime(s.ResolvedAt, now, "ago", "from now"), s.Label)
	}
	return tw.Flush()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
