package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sumo_tracker/ingestion/internal/client"
	"sumo_tracker/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

var testStart = time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)

// fakeSite serves the page + AJAX pair for every division/day and lets tests
// fail specific divisions.
func fakeSite(t *testing.T, failDivisions ...int) *httptest.Server {
	t.Helper()
	failed := make(map[string]bool, len(failDivisions))
	for _, d := range failDivisions {
		failed[fmt.Sprintf("/EnHonbashoMain/torikumiAjax/%d/", d)] = true
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`<html><body><div class="dayHead">Day 1 March 9, 2025</div></body></html>`))
			return
		}

		for prefix := range failed {
			if strings.HasPrefix(r.URL.Path, prefix) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		division := r.FormValue("kakuzuke_id")
		day := r.FormValue("day")
		fmt.Fprintf(w, `{"dayHead":"Day %s March 9, 2025","TorikumiData":[
			{"judge":1,"technic_name_eng":"yorikiri",
			 "east":{"rikishi_id":1,"shikona_eng":"East%s","banzuke_name_eng":"Division%s"},
			 "west":{"rikishi_id":2,"shikona_eng":"West%s","banzuke_name_eng":"Division%s"}}
		]}`, day, division, division, division, division)
	}))
}

func newTestScraper(t *testing.T, baseURL string, now time.Time) *Scraper {
	t.Helper()
	c := client.New(baseURL, client.Options{
		Delay:       time.Millisecond,
		RetryDelays: []time.Duration{time.Millisecond},
	})
	resolver := NewDateResolver(c, map[int]time.Time{628: testStart}, nil)
	return New(c, resolver, fakeClock{now: now})
}

func TestScraper_DayResults(t *testing.T) {
	srv := fakeSite(t)
	defer srv.Close()

	s := newTestScraper(t, srv.URL, testStart)
	matches, err := s.DayResults(context.Background(), 628, 3)
	require.NoError(t, err)

	// One decided bout per division, two records per bout.
	require.Len(t, matches, Divisions*2)

	byWrestler := make(map[string]*models.Match, len(matches))
	for _, m := range matches {
		byWrestler[m.WrestlerName] = m
		assert.Equal(t, 628, m.TournamentID)
		assert.Equal(t, int32(3), m.TournamentDay.Int32)
		assert.Equal(t, testStart.AddDate(0, 0, 2), m.MatchDate)
	}

	win := byWrestler["East1"]
	require.NotNil(t, win)
	assert.Equal(t, models.ResultWin, win.Result)
	assert.Equal(t, "West1", win.OpponentName)
	assert.Equal(t, "yorikiri", win.Technique)

	loss := byWrestler["West1"]
	require.NotNil(t, loss)
	assert.Equal(t, models.ResultLoss, loss.Result)
	assert.Equal(t, "East1", loss.OpponentName)
}

func TestScraper_DayResults_DivisionFailureTolerated(t *testing.T) {
	srv := fakeSite(t, 3)
	defer srv.Close()

	s := newTestScraper(t, srv.URL, testStart)
	matches, err := s.DayResults(context.Background(), 628, 1)
	require.NoError(t, err)

	assert.Len(t, matches, (Divisions-1)*2)
	for _, m := range matches {
		assert.NotEqual(t, "Division3", m.Division)
	}
}

func TestScraper_DayResults_DatesUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := newTestScraper(t, srv.URL, testStart)
	_, err := s.DayResults(context.Background(), 500, 1)
	assert.ErrorIs(t, err, ErrDatesUnavailable)
}

func TestScraper_TournamentResults_LimitsToElapsedDays(t *testing.T) {
	srv := fakeSite(t)
	defer srv.Close()

	// Three days into the tournament: days 1-4 have published results.
	s := newTestScraper(t, srv.URL, testStart.AddDate(0, 0, 3))
	matches, err := s.TournamentResults(context.Background(), 628)
	require.NoError(t, err)

	assert.Len(t, matches, 4*Divisions*2)

	days := make(map[int32]bool)
	for _, m := range matches {
		days[m.TournamentDay.Int32] = true
	}
	assert.Len(t, days, 4)
}

func TestScraper_TournamentResults_NotStarted(t *testing.T) {
	srv := fakeSite(t)
	defer srv.Close()

	s := newTestScraper(t, srv.URL, testStart.AddDate(0, 0, -2))
	matches, err := s.TournamentResults(context.Background(), 628)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestScraper_TournamentResults_Cancellation(t *testing.T) {
	srv := fakeSite(t)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestScraper(t, srv.URL, testStart.AddDate(0, 0, 10))
	_, err := s.TournamentResults(ctx, 628)
	assert.ErrorIs(t, err, context.Canceled)
}
