package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"sumo_tracker/ingestion/internal/cache"
	"sumo_tracker/ingestion/internal/client"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// TournamentDays is the fixed length of a tournament.
const TournamentDays = 15

// DateRange is a tournament's resolved [start, end] date span.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds the range for a tournament starting on start.
func NewDateRange(start time.Time) DateRange {
	start = dateOnly(start)
	return DateRange{Start: start, End: start.AddDate(0, 0, TournamentDays-1)}
}

// Contains reports whether t falls on one of the tournament's days.
func (r DateRange) Contains(t time.Time) bool {
	d := dateOnly(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// datePattern matches the human-readable start date embedded in the day-1
// header, e.g. "Day 1  March 9, 2025".
var datePattern = regexp.MustCompile(`[A-Z][a-z]+ \d{1,2}, \d{4}`)

const dateTableKey = "tournament_dates"

// DateResolver determines a tournament's date range via an ordered chain of
// strategies, memoizing results for the life of the process and persisting
// the resolved table to the cache store when one is configured.
type DateResolver struct {
	client    *client.Client
	overrides map[int]time.Time
	store     cache.Store

	mu       sync.Mutex
	resolved map[int]DateRange
}

// NewDateResolver creates a resolver. overrides is the operator-curated start
// date table for tournaments where scraping is unreliable; store may be nil.
func NewDateResolver(c *client.Client, overrides map[int]time.Time, store cache.Store) *DateResolver {
	if overrides == nil {
		overrides = make(map[int]time.Time)
	}
	r := &DateResolver{
		client:    c,
		overrides: overrides,
		store:     store,
		resolved:  make(map[int]DateRange),
	}
	r.loadPersisted()
	return r
}

type dateStrategy struct {
	name    string
	resolve func(ctx context.Context, tournamentID int) (time.Time, error)
}

// Resolve returns the tournament's date range, or false when no strategy
// succeeds. A false result means "cannot scrape this tournament now", not a
// fatal condition.
func (r *DateResolver) Resolve(ctx context.Context, tournamentID int) (DateRange, bool) {
	r.mu.Lock()
	if dr, ok := r.resolved[tournamentID]; ok {
		r.mu.Unlock()
		return dr, true
	}
	r.mu.Unlock()

	strategies := []dateStrategy{
		{"override", r.fromOverrides},
		{"page", r.fromDayPage},
		{"ajax", r.fromAjax},
	}

	for _, s := range strategies {
		log.Debug().
			Int("tournament_id", tournamentID).
			Str("strategy", s.name).
			Msg("Attempting date resolution")

		start, err := s.resolve(ctx, tournamentID)
		if err != nil {
			log.Debug().
				Err(err).
				Int("tournament_id", tournamentID).
				Str("strategy", s.name).
				Msg("Date resolution strategy failed")
			continue
		}

		dr := NewDateRange(start)
		r.mu.Lock()
		r.resolved[tournamentID] = dr
		r.persistLocked()
		r.mu.Unlock()

		log.Info().
			Int("tournament_id", tournamentID).
			Str("strategy", s.name).
			Str("start", dr.Start.Format("2006-01-02")).
			Str("end", dr.End.Format("2006-01-02")).
			Msg("Tournament dates resolved")
		return dr, true
	}

	log.Warn().Int("tournament_id", tournamentID).Msg("Could not resolve tournament dates")
	return DateRange{}, false
}

func (r *DateResolver) fromOverrides(_ context.Context, tournamentID int) (time.Time, error) {
	start, ok := r.overrides[tournamentID]
	if !ok {
		return time.Time{}, fmt.Errorf("no override for tournament %d", tournamentID)
	}
	return start, nil
}

// fromDayPage scrapes the day-1 page header for the start date.
func (r *DateResolver) fromDayPage(ctx context.Context, tournamentID int) (time.Time, error) {
	resp, err := r.client.DayPage(ctx, tournamentID, 1, 1)
	if err != nil {
		return time.Time{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse day page: %w", err)
	}

	header := doc.Find("div.dayHead").First().Text()
	if !datePattern.MatchString(header) {
		header = doc.Text()
	}

	return parseHeaderDate(header)
}

// fromAjax falls back to the day-1 AJAX payload, whose dayHead field carries
// the same header text.
func (r *DateResolver) fromAjax(ctx context.Context, tournamentID int) (time.Time, error) {
	torikumi, err := r.client.DayResults(ctx, tournamentID, 1, 1)
	if err != nil {
		return time.Time{}, err
	}
	return parseHeaderDate(torikumi.DayHead)
}

func parseHeaderDate(text string) (time.Time, error) {
	raw := datePattern.FindString(text)
	if raw == "" {
		return time.Time{}, fmt.Errorf("no date found in header text")
	}
	start, err := time.Parse("January 2, 2006", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse header date %q: %w", raw, err)
	}
	return start, nil
}

// loadPersisted seeds the memory cache from the persisted date table.
func (r *DateResolver) loadPersisted() {
	if r.store == nil {
		return
	}
	raw, ok := r.store.Get(dateTableKey)
	if !ok {
		return
	}

	var table map[string]string
	if err := json.Unmarshal(raw, &table); err != nil {
		log.Warn().Err(err).Msg("Corrupt tournament date table in cache, ignoring")
		return
	}

	for idStr, startStr := range table {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			continue
		}
		r.resolved[id] = NewDateRange(start)
	}

	log.Debug().Int("count", len(r.resolved)).Msg("Loaded persisted tournament dates")
}

// persistLocked writes the resolved table back to the cache store.
// Caller holds r.mu.
func (r *DateResolver) persistLocked() {
	if r.store == nil {
		return
	}

	table := make(map[string]string, len(r.resolved))
	for id, dr := range r.resolved {
		table[strconv.Itoa(id)] = dr.Start.Format("2006-01-02")
	}

	data, err := json.Marshal(table)
	if err == nil {
		err = r.store.Set(dateTableKey, data)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to persist tournament date table")
	}
}
