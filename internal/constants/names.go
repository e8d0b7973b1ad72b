package constants

import (
	"fmt"
	"strings"
)

// Name is the symbolic identifier of a physical constant, as used by the
// C headers and by override sources (config keys, environment, catalog).
type Name string

const (
	NameCLight           Name = "C_LIGHT"
	NameEpsilon0         Name = "EPSILON_0"
	NamePi               Name = "PI"
	NameDeg2Rad          Name = "DEG2RAD"
	NameRad2Deg          Name = "RAD2DEG"
	NameSqrtPi           Name = "SQRT_PI"
	NameQElem            Name = "QELEM"
	NameMProtonGeVPerC   Name = "MPROTON_GEVPERC"
	NameMElectronGeVPerC Name = "MELECTRON_GEVPERC"
	NameMElectronKg      Name = "MELECTRON_KG"
	NameAlpha            Name = "ALPHA"
	NameHBarGeVs         Name = "HBAR_GEVS"
	NameTwoOverSqrtPi    Name = "TWO_OVER_SQRT_PI"
	NameSqrtTwo          Name = "SQRT_TWO"
	NameReducedCompton   Name = "REDUCED_COMPTON"
	NameRealEpsilon      Name = "REAL_EPSILON"
)

// Count is the number of constants in the table.
const Count = 16

// Definition describes one entry of the constant table.
type Definition struct {
	Name        Name    `json:"name" yaml:"name"`
	Default     float64 `json:"default" yaml:"default"`
	Unit        string  `json:"unit" yaml:"unit"`
	Description string  `json:"description" yaml:"description"`
}

// definitions is kept in header order; Index relies on it.
var definitions = [Count]Definition{
	{NameCLight, CLight, "m/s", "speed of light"},
	{NameEpsilon0, Epsilon0, "F/m", "vacuum permittivity"},
	{NamePi, Pi, "1", "pi"},
	{NameDeg2Rad, Deg2Rad, "rad/deg", "degrees to radians factor"},
	{NameRad2Deg, Rad2Deg, "deg/rad", "radians to degrees factor"},
	{NameSqrtPi, SqrtPi, "1", "square root of pi"},
	{NameQElem, QElem, "C", "elementary charge"},
	{NameMProtonGeVPerC, MProtonGeVPerC, "GeV/c^2", "proton mass"},
	{NameMElectronGeVPerC, MElectronGeVPerC, "GeV/c^2", "electron mass"},
	{NameMElectronKg, MElectronKg, "kg", "electron mass"},
	{NameAlpha, Alpha, "1", "fine-structure constant"},
	{NameHBarGeVs, HBarGeVs, "GeV*s", "reduced Planck constant"},
	{NameTwoOverSqrtPi, TwoOverSqrtPi, "1", "two over square root of pi"},
	{NameSqrtTwo, SqrtTwo, "1", "square root of two"},
	{NameReducedCompton, ReducedCompton, "m", "reduced Compton wavelength"},
	{NameRealEpsilon, RealEpsilon, "1", "machine epsilon reference"},
}

var byName = func() map[Name]int {
	m := make(map[Name]int, Count)
	for i, d := range definitions {
		m[d.Name] = i
	}
	return m
}()

// Names returns all constant names in table order.
func Names() []Name {
	names := make([]Name, Count)
	for i, d := range definitions {
		names[i] = d.Name
	}
	return names
}

// Definitions returns a copy of the full table in table order.
func Definitions() []Definition {
	out := make([]Definition, Count)
	copy(out, definitions[:])
	return out
}

// Index returns the position of name in the table, or -1 if name is not a
// known constant.
func Index(name Name) int {
	if i, ok := byName[name]; ok {
		return i
	}
	return -1
}

// Lookup returns the definition for name.
func Lookup(name Name) (Definition, bool) {
	i := Index(name)
	if i < 0 {
		return Definition{}, false
	}
	return definitions[i], true
}

// Valid reports whether n is one of the table's names.
func (n Name) Valid() bool {
	return Index(n) >= 0
}

// Key returns the lower-case form used for config and environment keys.
func (n Name) Key() string {
	return strings.ToLower(string(n))
}

func (n Name) String() string {
	return string(n)
}

// ParseName converts s to a Name. Matching is case-insensitive and ignores
// surrounding whitespace, since config keys arrive lower-cased.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToUpper(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", fmt.Errorf("unknown constant %q", s)
	}
	return n, nil
}
