package types

import "time"

// Now returns the current time in UTC with no monotonic component, so that
// values survive a JSON round trip unchanged.
func Now() time.Time {
	return Canonical(time.Now())
}

// Canonical returns UTC time with no monotonic component.
func Canonical(t time.Time) time.Time {
	return t.Round(0).UTC()
}
