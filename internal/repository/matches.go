package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sumo_tracker/ingestion/internal/metrics"
	"sumo_tracker/ingestion/internal/models"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// MatchRepository handles match database operations. Stores are dedup-safe:
// the matches table carries a uniqueness constraint on
// (tournament_id, wrestler_name, opponent_name, match_date).
type MatchRepository struct {
	db *Database
}

// ExistingKeys loads the uniqueness keys already stored for a tournament,
// optionally narrowed to a single match date.
func (r *MatchRepository) ExistingKeys(ctx context.Context, tournamentID int, matchDate *time.Time) (map[models.MatchKey]struct{}, error) {
	query := `
		SELECT tournament_id, wrestler_name, opponent_name, match_date
		FROM matches
		WHERE tournament_id = $1
	`
	args := []interface{}{tournamentID}
	if matchDate != nil {
		query += ` AND match_date = $2`
		args = append(args, *matchDate)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing match keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[models.MatchKey]struct{})
	for rows.Next() {
		var (
			tid          int
			wrestler     string
			opponent     string
			matchDateRow time.Time
		)
		if err := rows.Scan(&tid, &wrestler, &opponent, &matchDateRow); err != nil {
			return nil, fmt.Errorf("failed to scan match key: %w", err)
		}
		keys[models.MatchKey{
			TournamentID: tid,
			WrestlerName: wrestler,
			OpponentName: opponent,
			MatchDate:    matchDateRow.Format("2006-01-02"),
		}] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match keys: %w", err)
	}

	log.Debug().
		Int("tournament_id", tournamentID).
		Int("count", len(keys)).
		Msg("Loaded existing match keys")
	return keys, nil
}

// StoreBatch persists the novel candidates among matches, returning the
// number considered and the number newly stored. Each insert runs under its
// own savepoint so a uniqueness race rolls back only that record; the batch
// commits once at the end.
func (r *MatchRepository) StoreBatch(ctx context.Context, matches []*models.Match, tournamentID int, matchDate *time.Time) (int, int, error) {
	if len(matches) == 0 {
		return 0, 0, nil
	}

	existing, err := r.ExistingKeys(ctx, tournamentID, matchDate)
	if err != nil {
		return 0, 0, err
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stored := 0
	duplicates := 0
	for _, match := range matches {
		key := match.Key()
		if _, ok := existing[key]; ok {
			duplicates++
			continue
		}

		// Nested Begin opens a savepoint, isolating this record.
		inner, err := tx.Begin(ctx)
		if err != nil {
			return len(matches), 0, fmt.Errorf("failed to open savepoint: %w", err)
		}

		if err := r.insertTx(ctx, inner, match); err != nil {
			inner.Rollback(ctx)
			if isUniqueViolation(err) {
				duplicates++
				log.Debug().
					Int("tournament_id", match.TournamentID).
					Str("wrestler", match.WrestlerName).
					Str("opponent", match.OpponentName).
					Msg("Duplicate match detected")
				continue
			}
			metrics.RecordError("repository", "match_insert")
			log.Warn().
				Err(err).
				Str("wrestler", match.WrestlerName).
				Str("opponent", match.OpponentName).
				Msg("Failed to store match, skipping")
			continue
		}

		if err := inner.Commit(ctx); err != nil {
			return len(matches), 0, fmt.Errorf("failed to release savepoint: %w", err)
		}

		stored++
		existing[key] = struct{}{}
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.RecordError("repository", "batch_commit")
		log.Error().Err(err).Int("tournament_id", tournamentID).Msg("Final commit failed")
		return len(matches), 0, fmt.Errorf("final commit failed: %w", err)
	}

	metrics.RecordStoreResult(len(matches), stored, duplicates)
	if duplicates > 0 {
		log.Info().
			Int("tournament_id", tournamentID).
			Int("count", duplicates).
			Msg("Skipped duplicate matches")
	}

	return len(matches), stored, nil
}

// insertTx inserts one match, lazily creating rikishi rows the first time an
// external id is observed.
func (r *MatchRepository) insertTx(ctx context.Context, tx pgx.Tx, match *models.Match) error {
	if match.WrestlerID.Valid {
		if err := r.db.Rikishi.ensureTx(ctx, tx, int(match.WrestlerID.Int32), match.WrestlerName); err != nil {
			return err
		}
	}
	if match.OpponentID.Valid {
		if err := r.db.Rikishi.ensureTx(ctx, tx, int(match.OpponentID.Int32), match.OpponentName); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO matches (
			tournament_id, tournament_day, match_date, division,
			wrestler_name, opponent_name, wrestler_id, opponent_id,
			result, winning_technique
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := tx.QueryRow(
		ctx, query,
		match.TournamentID, match.TournamentDay, match.MatchDate, match.Division,
		match.WrestlerName, match.OpponentName, match.WrestlerID, match.OpponentID,
		match.Result, match.Technique,
	).Scan(&match.ID, &match.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

// GetByTournamentDay retrieves matches for a specific tournament day.
func (r *MatchRepository) GetByTournamentDay(ctx context.Context, tournamentID, day int) ([]*models.Match, error) {
	query := `
		SELECT id, tournament_id, tournament_day, match_date, division,
		       wrestler_name, opponent_name, wrestler_id, opponent_id,
		       result, winning_technique, created_at
		FROM matches
		WHERE tournament_id = $1 AND tournament_day = $2
		ORDER BY division, wrestler_name
	`

	rows, err := r.db.Pool.Query(ctx, query, tournamentID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches by day: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		var match models.Match
		err := rows.Scan(
			&match.ID, &match.TournamentID, &match.TournamentDay, &match.MatchDate, &match.Division,
			&match.WrestlerName, &match.OpponentName, &match.WrestlerID, &match.OpponentID,
			&match.Result, &match.Technique, &match.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, &match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}

// CountByTournament returns the number of stored matches for a tournament.
func (r *MatchRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	query := `SELECT COUNT(*) FROM matches WHERE tournament_id = $1`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}

	return count, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
