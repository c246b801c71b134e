package p2p

import "strings"

// Readiness is a set of socket readiness kinds reported by the OS.
type Readiness uint8

const (
	Readable Readiness = 1 << iota
	Writable

	// ReadWrite waits for both kinds.
	ReadWrite = Readable | Writable
)

// Has reports whether every kind in want is present in r.
func (r Readiness) Has(want Readiness) bool {
	return r&want == want
}

func (r Readiness) String() string {
	var kinds []string
	if r.Has(Readable) {
		kinds = append(kinds, "readable")
	}
	if r.Has(Writable) {
		kinds = append(kinds, "writable")
	}
	if len(kinds) == 0 {
		return "none"
	}
	return strings.Join(kinds, "|")
}
