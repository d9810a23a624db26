package backfill

import (
	"context"
	"fmt"
	"time"

	"sumo_tracker/ingestion/internal/metrics"
	"sumo_tracker/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// Crawler fetches every available day of one tournament.
type Crawler interface {
	TournamentResults(ctx context.Context, tournamentID int) ([]*models.Match, error)
}

// MatchStore persists match candidates idempotently for a tournament scope.
type MatchStore interface {
	StoreBatch(ctx context.Context, matches []*models.Match, tournamentID int, matchDate *time.Time) (int, int, error)
}

// TournamentStats records the outcome of one tournament import.
type TournamentStats struct {
	TournamentID int
	Found        int
	Stored       int
	Err          error
}

// Orchestrator drives the crawler across a range of tournament ids,
// continuing past per-tournament failures.
type Orchestrator struct {
	crawler Crawler
	store   MatchStore
	pause   time.Duration
}

// New creates an orchestrator. pause is the deliberate delay inserted between
// tournaments to respect source load limits.
func New(crawler Crawler, store MatchStore, pause time.Duration) *Orchestrator {
	return &Orchestrator{crawler: crawler, store: store, pause: pause}
}

// ImportRange crawls and stores every tournament between startID and endID
// inclusive, in either direction. A failure while processing one tournament
// is recorded in its stats entry and never halts the import.
func (o *Orchestrator) ImportRange(ctx context.Context, startID, endID int) ([]TournamentStats, error) {
	step := 1
	if endID < startID {
		step = -1
	}

	var stats []TournamentStats
	for id := startID; ; id += step {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		log.Info().
			Int("tournament_id", id).
			Str("tournament", Label(id)).
			Msg("Importing tournament")

		stats = append(stats, o.importOne(ctx, id))

		if id == endID {
			break
		}
		if err := o.sleep(ctx); err != nil {
			return stats, err
		}
	}

	logSummary(stats)
	return stats, nil
}

// importOne crawls and stores a single tournament.
func (o *Orchestrator) importOne(ctx context.Context, tournamentID int) TournamentStats {
	start := time.Now()
	st := TournamentStats{TournamentID: tournamentID}

	matches, err := o.crawler.TournamentResults(ctx, tournamentID)
	if err != nil {
		st.Err = fmt.Errorf("crawl failed: %w", err)
		metrics.RecordImport("crawl_failed", time.Since(start).Seconds())
		log.Error().Err(err).Int("tournament_id", tournamentID).Msg("Tournament crawl failed")
		return st
	}
	if len(matches) == 0 {
		metrics.RecordImport("empty", time.Since(start).Seconds())
		log.Warn().Int("tournament_id", tournamentID).Msg("No matches found for tournament")
		return st
	}

	found, stored, err := o.store.StoreBatch(ctx, matches, tournamentID, nil)
	st.Found = found
	st.Stored = stored
	if err != nil {
		st.Err = fmt.Errorf("store failed: %w", err)
		metrics.RecordImport("store_failed", time.Since(start).Seconds())
		log.Error().Err(err).Int("tournament_id", tournamentID).Msg("Tournament store failed")
		return st
	}

	metrics.RecordImport("success", time.Since(start).Seconds())
	log.Info().
		Int("tournament_id", tournamentID).
		Int("found", found).
		Int("stored", stored).
		Msg("Tournament imported")
	return st
}

func (o *Orchestrator) sleep(ctx context.Context) error {
	if o.pause <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.pause):
		return nil
	}
}

func logSummary(stats []TournamentStats) {
	totalFound := 0
	totalStored := 0
	for _, st := range stats {
		totalFound += st.Found
		totalStored += st.Stored
		log.Info().
			Int("tournament_id", st.TournamentID).
			Str("tournament", Label(st.TournamentID)).
			Int("found", st.Found).
			Int("stored", st.Stored).
			Bool("failed", st.Err != nil).
			Msg("Tournament statistics")
	}
	log.Info().
		Int("total_found", totalFound).
		Int("total_stored", totalStored).
		Msg("Import complete")
}

// Tournament ids are sequential, six per year, with id 628 falling in
// March 2025.
const (
	anchorID    = 628
	anchorYear  = 2025
	anchorMonth = time.March
)

// Label derives an approximate human-readable name for a tournament id,
// used only in logs.
func Label(tournamentID int) string {
	monthsBack := (anchorID - tournamentID) * 2
	t := time.Date(anchorYear, anchorMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -monthsBack, 0)
	return fmt.Sprintf("%s %d Tournament", t.Month(), t.Year())
}
