package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"sumo_tracker/ingestion/internal/config"
	"sumo_tracker/ingestion/internal/metrics"
	"sumo_tracker/ingestion/internal/models"
	"sumo_tracker/ingestion/internal/scraper"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Crawler resolves tournament dates and fetches one day's results.
type Crawler interface {
	ResolveDates(ctx context.Context, tournamentID int) (scraper.DateRange, bool)
	DayResults(ctx context.Context, tournamentID, day int) ([]*models.Match, error)
}

// MatchStore persists match candidates idempotently for a tournament scope.
type MatchStore interface {
	StoreBatch(ctx context.Context, matches []*models.Match, tournamentID int, matchDate *time.Time) (int, int, error)
}

// Scheduler runs the daily results update on a cron schedule, after each
// tournament day's bouts conclude.
type Scheduler struct {
	cfg     *config.Config
	crawler Crawler
	store   MatchStore
	clock   scraper.Clock
	cron    *cron.Cron
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, crawler Crawler, store MatchStore, clock scraper.Clock) *Scheduler {
	if clock == nil {
		clock = scraper.SystemClock()
	}
	return &Scheduler{
		cfg:     cfg,
		crawler: crawler,
		store:   store,
		clock:   clock,
		cron:    cron.New(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.DailyUpdateCron, func() {
		log.Info().Msg("Running daily update...")
		if err := s.RunDailyUpdate(ctx); err != nil {
			metrics.RecordError("scheduler", "daily_update")
			log.Error().Err(err).Msg("Daily update failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule daily update: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.DailyUpdateCron).
		Msg("Daily update scheduled")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	if s.cron != nil {
		s.cron.Stop()
	}
	log.Info().Msg("Scheduler stopped")
}

// RunDailyUpdate fetches and stores the current tournament day's results.
// The day number comes from the wall-clock heuristic; the resolved date range
// only gates whether a tournament is in progress at all.
func (s *Scheduler) RunDailyUpdate(ctx context.Context) error {
	tournamentID := s.cfg.CurrentTournamentID
	day := scraper.CurrentTournamentDay(s.clock.Now())

	log.Info().
		Int("tournament_id", tournamentID).
		Int("day", day).
		Msg("Fetching current day results")

	dr, ok := s.crawler.ResolveDates(ctx, tournamentID)
	if !ok {
		return fmt.Errorf("tournament %d: %w", tournamentID, scraper.ErrDatesUnavailable)
	}

	if !dr.Contains(s.clock.Now()) {
		log.Info().Int("tournament_id", tournamentID).Msg("No tournament is currently in progress")
		return nil
	}

	matches, err := s.crawler.DayResults(ctx, tournamentID, day)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		log.Warn().
			Int("tournament_id", tournamentID).
			Int("day", day).
			Msg("No matches found for day")
		return nil
	}

	matchDate := dr.Start.AddDate(0, 0, day-1)
	found, stored, err := s.store.StoreBatch(ctx, matches, tournamentID, &matchDate)
	if err != nil {
		return err
	}

	metrics.LastSuccessfulUpdate.SetToCurrentTime()
	log.Info().
		Int("tournament_id", tournamentID).
		Int("day", day).
		Int("found", found).
		Int("stored", stored).
		Msg("Daily update complete")

	logDivisionSummary(matches)
	return nil
}

// logDivisionSummary logs the day's winners grouped by division.
func logDivisionSummary(matches []*models.Match) {
	byDivision := make(map[string][]*models.Match)
	for _, match := range matches {
		if match.IsWin() {
			byDivision[match.Division] = append(byDivision[match.Division], match)
		}
	}

	divisions := make([]string, 0, len(byDivision))
	for division := range byDivision {
		divisions = append(divisions, division)
	}
	sort.Strings(divisions)

	for _, division := range divisions {
		for _, match := range byDivision[division] {
			log.Info().
				Str("division", division).
				Str("winner", match.WrestlerName).
				Str("loser", match.OpponentName).
				Str("technique", match.Technique).
				Msg("Match result")
		}
	}
}
