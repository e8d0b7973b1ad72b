// Package table resolves the physical-constant table. Each constant takes
// the first value supplied for it by the caller or by an override source,
// and falls back to its literal default otherwise. A resolved Table never
// changes.
package table

import (
	"time"

	"github.com/thalib/xfields/internal/constants"
	xerrors "github.com/thalib/xfields/internal/errors"
)

// Entry is one resolved constant with its provenance.
type Entry struct {
	Name    constants.Name `json:"name" yaml:"name"`
	Value   float64        `json:"value" yaml:"value"`
	Default float64        `json:"default" yaml:"default"`
	Origin  Origin         `json:"origin" yaml:"origin"`
	Unit    string         `json:"unit" yaml:"unit"`
}

// DefinedByCaller reports whether the value was supplied before resolution
// rather than taken from the table's defaults.
func (e Entry) DefinedByCaller() bool {
	return e.Origin != OriginDefault
}

// Table is an immutable, resolved constant table.
type Table struct {
	id         string
	resolvedAt time.Time
	values     Values
	origins    [constants.Count]Origin
}

// ID returns the ULID assigned at resolution.
func (t *Table) ID() string {
	return t.id
}

// ResolvedAt returns the resolution time.
func (t *Table) ResolvedAt() time.Time {
	return t.resolvedAt
}

// Values returns a copy of the resolved values.
func (t *Table) Values() Values {
	return t.values
}

// Get returns the resolved value of name. Every constants.Name constant
// resolves; an arbitrary Name outside the table yields 0.
func (t *Table) Get(name constants.Name) float64 {
	v, _ := t.values.Get(name)
	return v
}

// Lookup resolves a name given as text, as read from user input.
func (t *Table) Lookup(name string) (float64, error) {
	n, err := constants.ParseName(name)
	if err != nil {
		return 0, xerrors.NewUnknownConstantError(name).Wrap(err)
	}
	return t.Get(n), nil
}

// Entry returns the resolved entry for name.
func (t *Table) Entry(name constants.Name) (Entry, bool) {
	i := constants.Index(name)
	if i < 0 {
		return Entry{}, false
	}
	def, _ := constants.Lookup(name)
	return Entry{
		Name:    name,
		Value:   t.Get(name),
		Default: def.Default,
		Origin:  t.origins[i],
		Unit:    def.Unit,
	}, true
}

// Entries returns all entries in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, constants.Count)
	for _, name := range constants.Names() {
		e, _ := t.Entry(name)
		out = append(out, e)
	}
	return out
}

// Overridden returns the entries whose value did not come from the
// defaults.
func (t *Table) Overridden() []Entry {
	var out []Entry
	for _, e := range t.Entries() {
		if e.DefinedByCaller() {
			out = append(out, e)
		}
	}
	return out
}

// Origin returns where the value of name came from.
func (t *Table) Origin(name constants.Name) Origin {
	i := constants.Index(name)
	if i < 0 {
		return ""
	}
	return t.origins[i]
}

// Convenience accessors for the hot constants.

func (t *Table) CLight() float64           { return t.values.CLight }
func (t *Table) Epsilon0() float64         { return t.values.Epsilon0 }
func (t *Table) Pi() float64               { return t.values.Pi }
func (t *Table) QElem() float64            { return t.values.QElem }
func (t *Table) MProtonGeVPerC() float64   { return t.values.MProtonGeVPerC }
func (t *Table) MElectronGeVPerC() float64 { return t.values.MElectronGeVPerC }
func (t *Table) MElectronKg() float64      { return t.values.MElectronKg }
