package scraper

import "time"

// DaysAvailable reports how many of a tournament's days already have
// published results as of today: none before the start date, day numbers up
// to and including today while in progress, and all days once concluded.
// The crawler never requests a day beyond this bound.
func DaysAvailable(r DateRange, today time.Time) int {
	t := dateOnly(today)
	if t.Before(r.Start) {
		return 0
	}
	if t.After(r.End) {
		return TournamentDays
	}
	return int(t.Sub(r.Start).Hours()/24) + 1
}
