package core

import "time"

// Clock supplies the current time. Using an interface here lets tests drive
// idle eviction and timestamps with a fake clock instead of the wall clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// Stamper renders the display-time label attached to every message,
// e.g. "[14:05]", in a fixed UTC offset.
type Stamper struct {
	loc *time.Location
}

// NewStamper builds a Stamper for the given UTC offset in minutes
// (e.g. -300 for UTC-5).
func NewStamper(offsetMinutes int) *Stamper {
	return &Stamper{loc: time.FixedZone("display", offsetMinutes*60)}
}

// Label formats t as the bracketed HH:MM display label.
func (s *Stamper) Label(t time.Time) string {
	return t.In(s.loc).Format("[15:04]")
}
