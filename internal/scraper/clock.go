package scraper

import "time"

// Clock abstracts wall-clock time so range planning and the daily heuristic
// are testable without real time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
