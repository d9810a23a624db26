package scraper

import "time"

// Each tournament day's bouts wrap up around 18:00 JST; after this hour the
// daily update targets the next day's schedule.
const dayCutoffHour = 19

// CurrentTournamentDay approximates today's tournament day number from the
// wall clock alone, without consulting the resolved date range. It assumes
// day-of-month boundaries line up with the 15-day cycle, which holds only
// approximately.
func CurrentTournamentDay(now time.Time) int {
	day := now.Day()
	if now.Hour() >= dayCutoffHour {
		day = now.AddDate(0, 0, 1).Day()
	}
	return (day % TournamentDays) + 1
}
