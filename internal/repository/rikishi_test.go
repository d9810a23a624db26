package repository

import (
	"database/sql"
	"testing"
	"time"

	"sumo_tracker/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRikishiID = 990201

func TestRikishiRepository_UpsertAndGet(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	defer db.Pool.Exec(ctx, `DELETE FROM rikishi WHERE id = $1`, testRikishiID)

	rikishi := &models.Rikishi{
		ID:       testRikishiID,
		Shikona:  "Testozan",
		HeightCm: sql.NullInt32{Int32: 184, Valid: true},
		WeightKg: sql.NullInt32{Int32: 152, Valid: true},
	}

	err := db.Rikishi.Upsert(ctx, rikishi)
	require.NoError(t, err)
	assert.False(t, rikishi.CreatedAt.IsZero())

	got, err := db.Rikishi.GetByID(ctx, testRikishiID)
	require.NoError(t, err)
	assert.Equal(t, "Testozan", got.Shikona)
	assert.Equal(t, int32(184), got.HeightCm.Int32)
	assert.Equal(t, int32(152), got.WeightKg.Int32)
}

func TestRikishiRepository_UpsertPreservesDetails(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	defer db.Pool.Exec(ctx, `DELETE FROM rikishi WHERE id = $1`, testRikishiID)

	full := &models.Rikishi{
		ID:        testRikishiID,
		Shikona:   "Testozan",
		BirthDate: sql.NullTime{Time: time.Date(1999, 5, 20, 0, 0, 0, 0, time.UTC), Valid: true},
		HeightCm:  sql.NullInt32{Int32: 184, Valid: true},
	}
	require.NoError(t, db.Rikishi.Upsert(ctx, full))

	// A later upsert without details renames but must not null them out.
	sparse := &models.Rikishi{ID: testRikishiID, Shikona: "Testozan II"}
	require.NoError(t, db.Rikishi.Upsert(ctx, sparse))

	got, err := db.Rikishi.GetByID(ctx, testRikishiID)
	require.NoError(t, err)
	assert.Equal(t, "Testozan II", got.Shikona)
	assert.True(t, got.BirthDate.Valid)
	assert.Equal(t, int32(184), got.HeightCm.Int32)
}

func TestRikishiRepository_GetByIDNotFound(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	_, err := db.Rikishi.GetByID(ctx, 999999999)
	assert.Error(t, err)
}

func TestRikishiRepository_Count(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	defer db.Pool.Exec(ctx, `DELETE FROM rikishi WHERE id = $1`, testRikishiID)

	before, err := db.Rikishi.Count(ctx)
	require.NoError(t, err)

	require.NoError(t, db.Rikishi.Upsert(ctx, &models.Rikishi{ID: testRikishiID, Shikona: "Testozan"}))

	after, err := db.Rikishi.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}
