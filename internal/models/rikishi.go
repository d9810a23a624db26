package models

import (
	"database/sql"
	"time"
)

// Rikishi represents a sumo wrestler. Identity is the stable external id from
// the source site; the shikona (display name) is not unique and may be reused
// under the same id across tournaments.
type Rikishi struct {
	ID        int            `db:"id"`
	Shikona   string         `db:"shikona"`
	BirthDate sql.NullTime   `db:"birth_date"`
	HeightCm  sql.NullInt32  `db:"height_cm"`
	WeightKg  sql.NullInt32  `db:"weight_kg"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}
