package repository

import (
	"context"
	"fmt"

	"sumo_tracker/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// RikishiRepository handles wrestler database operations. The identity key is
// the external id from the source site; shikona (display names) are not
// unique and may be reused under the same id across tournaments.
type RikishiRepository struct {
	db *Database
}

// ensureTx lazily creates a rikishi row the first time an external id is
// observed. An existing row is left untouched so a confirmed shikona is never
// clobbered mid-batch.
func (r *RikishiRepository) ensureTx(ctx context.Context, tx pgx.Tx, id int, shikona string) error {
	query := `
		INSERT INTO rikishi (id, shikona)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := tx.Exec(ctx, query, id, shikona); err != nil {
		return fmt.Errorf("failed to ensure rikishi %d: %w", id, err)
	}
	return nil
}

// Upsert inserts or updates a wrestler, confirming the shikona for its id.
func (r *RikishiRepository) Upsert(ctx context.Context, rikishi *models.Rikishi) error {
	query := `
		INSERT INTO rikishi (id, shikona, birth_date, height_cm, weight_kg)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			shikona = EXCLUDED.shikona,
			birth_date = COALESCE(EXCLUDED.birth_date, rikishi.birth_date),
			height_cm = COALESCE(EXCLUDED.height_cm, rikishi.height_cm),
			weight_kg = COALESCE(EXCLUDED.weight_kg, rikishi.weight_kg),
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx, query,
		rikishi.ID, rikishi.Shikona, rikishi.BirthDate, rikishi.HeightCm, rikishi.WeightKg,
	).Scan(&rikishi.CreatedAt, &rikishi.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert rikishi: %w", err)
	}

	log.Debug().
		Int("id", rikishi.ID).
		Str("shikona", rikishi.Shikona).
		Msg("Rikishi saved")
	return nil
}

// GetByID retrieves a wrestler by its external id.
func (r *RikishiRepository) GetByID(ctx context.Context, id int) (*models.Rikishi, error) {
	query := `
		SELECT id, shikona, birth_date, height_cm, weight_kg, created_at, updated_at
		FROM rikishi
		WHERE id = $1
	`

	var rikishi models.Rikishi
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&rikishi.ID, &rikishi.Shikona, &rikishi.BirthDate,
		&rikishi.HeightCm, &rikishi.WeightKg,
		&rikishi.CreatedAt, &rikishi.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("rikishi not found: id=%d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rikishi: %w", err)
	}

	return &rikishi, nil
}

// Count returns the total number of known wrestlers.
func (r *RikishiRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM rikishi`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rikishi: %w", err)
	}

	return count, nil
}
