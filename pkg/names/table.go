package names

import "strings"

// Unknown is returned by lookups for codes that have no entry.
const Unknown = "(Unknown)"

// Entry maps one numeric code to its short symbolic name.
type Entry struct {
	Code uint16
	Name string
}

// Table is an ordered list of code/name pairs. The accessors in this package
// return copies, so a caller's changes never reach the registry.
type Table []Entry

// Name returns the short name for code.
func (t Table) Name(code uint16) (string, bool) {
	for _, e := range t {
		if e.Code == code {
			return e.Name, true
		}
	}
	return Unknown, false
}

// Code returns the code registered under name. Matching ignores case.
func (t Table) Code(name string) (uint16, bool) {
	for _, e := range t {
		if strings.EqualFold(e.Name, name) {
			return e.Code, true
		}
	}
	return 0, false
}

// Max returns the largest code in the table.
func (t Table) Max() uint16 {
	var m uint16
	for _, e := range t {
		if e.Code > m {
			m = e.Code
		}
	}
	return m
}

// Names lists the short names in table order.
func (t Table) Names() []string {
	out := make([]string, len(t))
	for i, e := range t {
		out[i] = e.Name
	}
	return out
}
