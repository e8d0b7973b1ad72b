// Package constants defines the physical-constant table shared by the
// xfields beam-physics code. The literals below are the compile-time
// defaults; packages that need caller overrides resolve them through
// internal/table instead of using these values directly.
package constants

// Physical constants in SI or GeV units.
// Used in: table/values.go, consistency/checker.go
const (
	// CLight is the speed of light in vacuum, in m/s.
	CLight = 299792458.0

	// Epsilon0 is the vacuum permittivity, in F/m.
	Epsilon0 = 8.854187817620e-12

	// QElem is the elementary charge, in C.
	QElem = 1.60217662e-19

	// MProtonGeVPerC is the proton rest mass, in GeV/c^2.
	MProtonGeVPerC = 0.93827208816

	// MElectronGeVPerC is the electron rest mass, in GeV/c^2.
	MElectronGeVPerC = 0.00051099895000

	// MElectronKg is the electron rest mass, in kg.
	MElectronKg = 9.1093837015e-31

	// Alpha is the fine-structure constant.
	Alpha = 7.29735257e-3

	// HBarGeVs is the reduced Planck constant, in GeV*s.
	HBarGeVs = 6.582119569e-25

	// ReducedCompton is the reduced Compton wavelength of the electron, in m.
	ReducedCompton = 3.8615926796089057e-13
)

// Mathematical constants.
// The literals carry more digits than a float64 holds; Go keeps them exact
// until they are converted, so the float64 value is the nearest double.
const (
	Pi            = 3.1415926535897932384626433832795028841971693993751
	Deg2Rad       = 0.0174532925199432957692369076848861271344287188854
	Rad2Deg       = 57.29577951308232087679815481410517033240547246656442
	SqrtPi        = 1.7724538509055160272981674833411451827975494561224
	TwoOverSqrtPi = 1.128379167095512573896158903121545171688101258657997713688171443418
	SqrtTwo       = 1.414213562373095048801688724209698078569671875376948073176679738
)

// RealEpsilon is the machine epsilon reference used for float comparisons.
const RealEpsilon = 2.22044604925031e-16
