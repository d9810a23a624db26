package repository

import (
	"database/sql"
	"testing"
	"time"

	"sumo_tracker/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTournamentID is far outside the real id sequence so test rows never
// collide with ingested data.
const testTournamentID = 990001

func testMatches(date time.Time) []*models.Match {
	day := sql.NullInt32{Int32: 1, Valid: true}
	return []*models.Match{
		{
			TournamentID:  testTournamentID,
			TournamentDay: day,
			MatchDate:     date,
			Division:      "Makuuchi",
			WrestlerName:  "Testozan",
			OpponentName:  "Mockinoumi",
			Result:        models.ResultWin,
			Technique:     "yorikiri",
		},
		{
			TournamentID:  testTournamentID,
			TournamentDay: day,
			MatchDate:     date,
			Division:      "Makuuchi",
			WrestlerName:  "Mockinoumi",
			OpponentName:  "Testozan",
			Result:        models.ResultLoss,
			Technique:     "yorikiri",
		},
	}
}

func TestMatchRepository_StoreBatch(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	cleanTournament(t, ctx, db, testTournamentID)
	defer cleanTournament(t, ctx, db, testTournamentID)

	date := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	matches := testMatches(date)

	found, stored, err := db.Matches.StoreBatch(ctx, matches, testTournamentID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, found)
	assert.Equal(t, 2, stored)

	count, err := db.Matches.CountByTournament(ctx, testTournamentID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMatchRepository_StoreBatchIdempotent(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	cleanTournament(t, ctx, db, testTournamentID)
	defer cleanTournament(t, ctx, db, testTournamentID)

	date := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)

	_, stored, err := db.Matches.StoreBatch(ctx, testMatches(date), testTournamentID, nil)
	require.NoError(t, err)
	require.Equal(t, 2, stored)

	// Replaying the exact same batch must store nothing new.
	found, stored, err := db.Matches.StoreBatch(ctx, testMatches(date), testTournamentID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, found)
	assert.Zero(t, stored)

	count, err := db.Matches.CountByTournament(ctx, testTournamentID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMatchRepository_SamePairingLaterDayIsNew(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	cleanTournament(t, ctx, db, testTournamentID)
	defer cleanTournament(t, ctx, db, testTournamentID)

	day1 := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	_, _, err := db.Matches.StoreBatch(ctx, testMatches(day1), testTournamentID, nil)
	require.NoError(t, err)

	// A rematch on a different date is a distinct bout.
	_, stored, err := db.Matches.StoreBatch(ctx, testMatches(day2), testTournamentID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
}

func TestMatchRepository_ExistingKeysScopedToDate(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	cleanTournament(t, ctx, db, testTournamentID)
	defer cleanTournament(t, ctx, db, testTournamentID)

	day1 := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	_, _, err := db.Matches.StoreBatch(ctx, testMatches(day1), testTournamentID, nil)
	require.NoError(t, err)
	_, _, err = db.Matches.StoreBatch(ctx, testMatches(day2), testTournamentID, nil)
	require.NoError(t, err)

	all, err := db.Matches.ExistingKeys(ctx, testTournamentID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	scoped, err := db.Matches.ExistingKeys(ctx, testTournamentID, &day2)
	require.NoError(t, err)
	assert.Len(t, scoped, 2)
	for key := range scoped {
		assert.Equal(t, day2.Format("2006-01-02"), key.MatchDate)
	}
}

func TestMatchRepository_GetByTournamentDay(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	cleanTournament(t, ctx, db, testTournamentID)
	defer cleanTournament(t, ctx, db, testTournamentID)

	date := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	_, _, err := db.Matches.StoreBatch(ctx, testMatches(date), testTournamentID, nil)
	require.NoError(t, err)

	matches, err := db.Matches.GetByTournamentDay(ctx, testTournamentID, 1)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	for _, m := range matches {
		assert.Equal(t, testTournamentID, m.TournamentID)
		assert.Equal(t, int32(1), m.TournamentDay.Int32)
		assert.NotZero(t, m.ID)
		assert.False(t, m.CreatedAt.IsZero())
	}

	none, err := db.Matches.GetByTournamentDay(ctx, testTournamentID, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMatchRepository_LazyRikishiCreation(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	cleanTournament(t, ctx, db, testTournamentID)
	defer cleanTournament(t, ctx, db, testTournamentID)

	const wrestlerID = 990101
	const opponentID = 990102
	defer db.Pool.Exec(ctx, `DELETE FROM rikishi WHERE id IN ($1, $2)`, wrestlerID, opponentID)

	date := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	matches := testMatches(date)
	matches[0].WrestlerID = sql.NullInt32{Int32: wrestlerID, Valid: true}
	matches[0].OpponentID = sql.NullInt32{Int32: opponentID, Valid: true}

	_, stored, err := db.Matches.StoreBatch(ctx, matches, testTournamentID, nil)
	require.NoError(t, err)
	require.Equal(t, 2, stored)

	wrestler, err := db.Rikishi.GetByID(ctx, wrestlerID)
	require.NoError(t, err)
	assert.Equal(t, "Testozan", wrestler.Shikona)

	opponent, err := db.Rikishi.GetByID(ctx, opponentID)
	require.NoError(t, err)
	assert.Equal(t, "Mockinoumi", opponent.Shikona)
}

func TestMatchRepository_EmptyBatch(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	found, stored, err := db.Matches.StoreBatch(ctx, nil, testTournamentID, nil)
	require.NoError(t, err)
	assert.Zero(t, found)
	assert.Zero(t, stored)
}
