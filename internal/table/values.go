package table

import (
	"github.com/thalib/xfields/internal/constants"
)

// Values holds one float64 per constant. It is the configuration record
// handed to consuming code; the zero Values is not meaningful, start from
// Defaults.
type Values struct {
	CLight           float64 `json:"C_LIGHT" yaml:"C_LIGHT"`
	Epsilon0         float64 `json:"EPSILON_0" yaml:"EPSILON_0"`
	Pi               float64 `json:"PI" yaml:"PI"`
	Deg2Rad          float64 `json:"DEG2RAD" yaml:"DEG2RAD"`
	Rad2Deg          float64 `json:"RAD2DEG" yaml:"RAD2DEG"`
	SqrtPi           float64 `json:"SQRT_PI" yaml:"SQRT_PI"`
	QElem            float64 `json:"QELEM" yaml:"QELEM"`
	MProtonGeVPerC   float64 `json:"MPROTON_GEVPERC" yaml:"MPROTON_GEVPERC"`
	MElectronGeVPerC float64 `json:"MELECTRON_GEVPERC" yaml:"MELECTRON_GEVPERC"`
	MElectronKg      float64 `json:"MELECTRON_KG" yaml:"MELECTRON_KG"`
	Alpha            float64 `json:"ALPHA" yaml:"ALPHA"`
	HBarGeVs         float64 `json:"HBAR_GEVS" yaml:"HBAR_GEVS"`
	TwoOverSqrtPi    float64 `json:"TWO_OVER_SQRT_PI" yaml:"TWO_OVER_SQRT_PI"`
	SqrtTwo          float64 `json:"SQRT_TWO" yaml:"SQRT_TWO"`
	ReducedCompton   float64 `json:"REDUCED_COMPTON" yaml:"REDUCED_COMPTON"`
	RealEpsilon      float64 `json:"REAL_EPSILON" yaml:"REAL_EPSILON"`
}

// Defaults returns the table's literal defaults.
func Defaults() Values {
	return Values{
		CLight:           constants.CLight,
		Epsilon0:         constants.Epsilon0,
		Pi:               constants.Pi,
		Deg2Rad:          constants.Deg2Rad,
		Rad2Deg:          constants.Rad2Deg,
		SqrtPi:           constants.SqrtPi,
		QElem:            constants.QElem,
		MProtonGeVPerC:   constants.MProtonGeVPerC,
		MElectronGeVPerC: constants.MElectronGeVPerC,
		MElectronKg:      constants.MElectronKg,
		Alpha:            constants.Alpha,
		HBarGeVs:         constants.HBarGeVs,
		TwoOverSqrtPi:    constants.TwoOverSqrtPi,
		SqrtTwo:          constants.SqrtTwo,
		ReducedCompton:   constants.ReducedCompton,
		RealEpsilon:      constants.RealEpsilon,
	}
}

// field maps a name to the matching struct field. It returns nil for
// names outside the table.
func (v *Values) field(name constants.Name) *float64 {
	switch name {
	case constants.NameCLight:
		return &v.CLight
	case constants.NameEpsilon0:
		return &v.Epsilon0
	case constants.NamePi:
		return &v.Pi
	case constants.NameDeg2Rad:
		return &v.Deg2Rad
	case constants.NameRad2Deg:
		return &v.Rad2Deg
	case constants.NameSqrtPi:
		return &v.SqrtPi
	case constants.NameQElem:
		return &v.QElem
	case constants.NameMProtonGeVPerC:
		return &v.MProtonGeVPerC
	case constants.NameMElectronGeVPerC:
		return &v.MElectronGeVPerC
	case constants.NameMElectronKg:
		return &v.MElectronKg
	case constants.NameAlpha:
		return &v.Alpha
	case constants.NameHBarGeVs:
		return &v.HBarGeVs
	case constants.NameTwoOverSqrtPi:
		return &v.TwoOverSqrtPi
	case constants.NameSqrtTwo:
		return &v.SqrtTwo
	case constants.NameReducedCompton:
		return &v.ReducedCompton
	case constants.NameRealEpsilon:
		return &v.RealEpsilon
	}
	return nil
}

// Get returns the value stored for name, and false if name is not a
// constant of the table.
func (v Values) Get(name constants.Name) (float64, bool) {
	p := v.field(name)
	if p == nil {
		return 0, false
	}
	return *p, true
}

func (v *Values) set(name constants.Name, value float64) bool {
	p := v.field(name)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// With returns a copy of v with the given overrides applied. Unknown names
// are ignored; validate with Overrides.Validate first when that matters.
func (v Values) With(overrides Overrides) Values {
	for name, value := range overrides {
		v.set(name, value)
	}
	return v
}

// Map returns the values keyed by name.
func (v Values) Map() map[constants.Name]float64 {
	m := make(map[constants.Name]float64, constants.Count)
	for _, name := range constants.Names() {
		m[name], _ = v.Get(name)
	}
	return m
}
