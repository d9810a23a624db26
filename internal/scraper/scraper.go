package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sumo_tracker/ingestion/internal/client"
	"sumo_tracker/ingestion/internal/metrics"
	"sumo_tracker/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// Divisions is the number of competitive tiers, ranked top to bottom
// (kakuzuke ids 1 through 6).
const Divisions = 6

// ErrDatesUnavailable is returned when no date resolution strategy succeeded
// for a tournament. Callers should skip the tournament, not abort.
var ErrDatesUnavailable = errors.New("tournament dates unavailable")

// Scraper crawls tournament results division by division, day by day.
type Scraper struct {
	client *client.Client
	dates  *DateResolver
	clock  Clock
}

// New creates a scraper. A nil clock defaults to the system clock.
func New(c *client.Client, dates *DateResolver, clock Clock) *Scraper {
	if clock == nil {
		clock = SystemClock()
	}
	return &Scraper{client: c, dates: dates, clock: clock}
}

// ResolveDates resolves the tournament's date range via the resolver's
// strategy chain.
func (s *Scraper) ResolveDates(ctx context.Context, tournamentID int) (DateRange, bool) {
	return s.dates.Resolve(ctx, tournamentID)
}

// DayResults fetches all divisions for one tournament day. A division that
// fails or comes back empty is logged and skipped; it never aborts the day.
func (s *Scraper) DayResults(ctx context.Context, tournamentID, day int) ([]*models.Match, error) {
	dr, ok := s.dates.Resolve(ctx, tournamentID)
	if !ok {
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, ErrDatesUnavailable)
	}
	matchDate := dr.Start.AddDate(0, 0, day-1)

	var matches []*models.Match
	for division := 1; division <= Divisions; division++ {
		if err := ctx.Err(); err != nil {
			return matches, err
		}

		divMatches, err := s.divisionResults(ctx, tournamentID, division, day, matchDate)
		if err != nil {
			metrics.RecordError("scraper", "division_fetch")
			log.Warn().
				Err(err).
				Int("tournament_id", tournamentID).
				Int("day", day).
				Int("division", division).
				Msg("Division fetch failed, skipping")
			continue
		}
		if len(divMatches) == 0 {
			log.Warn().
				Int("tournament_id", tournamentID).
				Int("day", day).
				Int("division", division).
				Msg("No matches for division")
			continue
		}

		matches = append(matches, divMatches...)
	}

	return matches, nil
}

// divisionResults performs the page + AJAX pair for one division and parses
// the bouts.
func (s *Scraper) divisionResults(ctx context.Context, tournamentID, division, day int, matchDate time.Time) ([]*models.Match, error) {
	// The page request only establishes session state; the AJAX call may
	// still succeed without it.
	if _, err := s.client.DayPage(ctx, tournamentID, division, day); err != nil {
		log.Debug().
			Err(err).
			Int("tournament_id", tournamentID).
			Int("division", division).
			Int("day", day).
			Msg("Day page fetch failed")
	}

	torikumi, err := s.client.DayResults(ctx, tournamentID, division, day)
	if err != nil {
		return nil, err
	}

	var matches []*models.Match
	for i := range torikumi.TorikumiData {
		matches = append(matches, torikumi.TorikumiData[i].Matches(tournamentID, day, matchDate)...)
	}
	return matches, nil
}

// TournamentResults fetches every day of a tournament that has published
// results so far. Per-day failures are logged and skipped.
func (s *Scraper) TournamentResults(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	dr, ok := s.dates.Resolve(ctx, tournamentID)
	if !ok {
		return nil, fmt.Errorf("tournament %d: %w", tournamentID, ErrDatesUnavailable)
	}

	days := DaysAvailable(dr, s.clock.Now())
	if days == 0 {
		log.Info().Int("tournament_id", tournamentID).Msg("Tournament has not started yet")
		return nil, nil
	}

	log.Info().
		Int("tournament_id", tournamentID).
		Int("days", days).
		Msg("Scraping tournament days")

	var all []*models.Match
	for day := 1; day <= days; day++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		matches, err := s.DayResults(ctx, tournamentID, day)
		if err != nil {
			log.Warn().
				Err(err).
				Int("tournament_id", tournamentID).
				Int("day", day).
				Msg("Day fetch failed, skipping")
			continue
		}
		if len(matches) == 0 {
			log.Warn().
				Int("tournament_id", tournamentID).
				Int("day", day).
				Msg("No matches found for day")
			continue
		}

		log.Info().
			Int("tournament_id", tournamentID).
			Int("day", day).
			Int("count", len(matches)).
			Msg("Day results fetched")
		all = append(all, matches...)
	}

	return all, nil
}
