// Package dataset reads the abalone measurement table.
package dataset

// Column names as they appear in the CSV header.
const (
	ColSex           = "Sex"
	ColLength        = "Length"
	ColDiameter      = "Diameter"
	ColHeight        = "Height"
	ColWholeWeight   = "Whole weight"
	ColShuckedWeight = "Shucked weight"
	ColVisceraWeight = "Viscera weight"
	ColShellWeight   = "Shell weight"
	ColRings         = "Rings"
)

// ContinuousColumns lists the seven physical measurements in canonical order.
var ContinuousColumns = []string{
	ColLength,
	ColDiameter,
	ColHeight,
	ColWholeWeight,
	ColShuckedWeight,
	ColVisceraWeight,
	ColShellWeight,
}

// Columns is the full expected column set in canonical order.
var Columns = append([]string{ColSex}, append(append([]string{}, ContinuousColumns...), ColRings)...)

// Sex symbols.
const (
	SexFemale = "F"
	SexInfant = "I"
	SexMale   = "M"
)

// KnownSexes returns the sex symbols accepted anywhere in the system, sorted.
func KnownSexes() []string {
	return []string{SexFemale, SexInfant, SexMale}
}

// IsKnownSex reports whether s is one of F, I or M.
func IsKnownSex(s string) bool {
	switch s {
	case SexFemale, SexInfant, SexMale:
		return true
	}
	return false
}

// RawRecord is one specimen as read from the source file.
type RawRecord struct {
	Sex           string
	Length        float64
	Diameter      float64
	Height        float64
	WholeWeight   float64
	ShuckedWeight float64
	VisceraWeight float64
	ShellWeight   float64
	Rings         int
}

// Value returns the numeric attribute stored under a column name.
// Rings is returned as a float. ok is false for Sex and unknown names.
func (r RawRecord) Value(column string) (v float64, ok bool) {
	switch column {
	case ColLength:
		return r.Length, true
	case ColDiameter:
		return r.Diameter, true
	case ColHeight:
		return r.Height, true
	case ColWholeWeight:
		return r.WholeWeight, true
	case ColShuckedWeight:
		return r.ShuckedWeight, true
	case ColVisceraWeight:
		return r.VisceraWeight, true
	case ColShellWeight:
		return r.ShellWeight, true
	case ColRings:
		return float64(r.Rings), true
	}
	return 0, false
}

func (r *RawRecord) set(column string, v float64) {
	switch column {
	case ColLength:
		r.Length = v
	case ColDiameter:
		r.Diameter = v
	case ColHeight:
		r.Height = v
	case ColWholeWeight:
		r.WholeWeight = v
	case ColShuckedWeight:
		r.ShuckedWeight = v
	case ColVisceraWeight:
		r.VisceraWeight = v
	case ColShellWeight:
		r.ShellWeight = v
	}
}
