package table

// Quantities derived from a resolved table. Overrides flow through, so a
// table with a modified QELEM yields a consistent radius.

// ClassicalRadius returns the classical radius, in m, of a particle with
// charge number z and rest mass massGeV (GeV/c^2).
func (t *Table) ClassicalRadius(z, massGeV float64) float64 {
	v := t.values
	return z * z * v.QElem / (4 * v.Pi * v.Epsilon0 * massGeV * 1e9)
}

// ClassicalElectronRadius returns r_e in m.
func (t *Table) ClassicalElectronRadius() float64 {
	return t.ClassicalRadius(1, t.values.MElectronGeVPerC)
}

// ClassicalProtonRadius returns r_p in m.
func (t *Table) ClassicalProtonRadius() float64 {
	return t.ClassicalRadius(1, t.values.MProtonGeVPerC)
}

// ProtonMassKg converts the proton mass to kg.
func (t *Table) ProtonMassKg() float64 {
	v := t.values
	return v.MProtonGeVPerC * 1e9 * v.QElem / (v.CLight * v.CLight)
}

// ProtonMassEV returns the proton mass in eV/c^2.
func (t *Table) ProtonMassEV() float64 {
	return t.values.MProtonGeVPerC * 1e9
}

// ElectronMassEV returns the electron mass in eV/c^2.
func (t *Table) ElectronMassEV() float64 {
	return t.values.MElectronGeVPerC * 1e9
}
