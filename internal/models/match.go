package models

import (
	"database/sql"
	"time"
)

// Match result values
const (
	ResultWin  = "win"
	ResultLoss = "loss"
)

// Match represents one decided bout outcome from a single wrestler's perspective.
// Every decided bout produces two Match records: a win for one wrestler and the
// corresponding loss for the opponent.
type Match struct {
	ID            int           `db:"id"`
	TournamentID  int           `db:"tournament_id"`
	TournamentDay sql.NullInt32 `db:"tournament_day"`
	MatchDate     time.Time     `db:"match_date"`
	Division      string        `db:"division"`
	WrestlerName  string        `db:"wrestler_name"`
	OpponentName  string        `db:"opponent_name"`
	WrestlerID    sql.NullInt32 `db:"wrestler_id"`
	OpponentID    sql.NullInt32 `db:"opponent_id"`
	Result        string        `db:"result"`
	Technique     string        `db:"winning_technique"`
	CreatedAt     time.Time     `db:"created_at"`
}

// MatchKey is the uniqueness key enforced by the matches table.
// A pairing can only be recorded once per tournament day.
type MatchKey struct {
	TournamentID int
	WrestlerName string
	OpponentName string
	MatchDate    string // YYYY-MM-DD
}

// Key returns the uniqueness key for this match.
func (m *Match) Key() MatchKey {
	return MatchKey{
		TournamentID: m.TournamentID,
		WrestlerName: m.WrestlerName,
		OpponentName: m.OpponentName,
		MatchDate:    m.MatchDate.Format("2006-01-02"),
	}
}

// IsWin returns true if this record is the winning side of the bout.
func (m *Match) IsWin() bool {
	return m.Result == ResultWin
}

// TorikumiResponse is the JSON body returned by the torikumi AJAX endpoint
// for one division/day pair.
type TorikumiResponse struct {
	DayHead      string `json:"dayHead"`
	TorikumiData []Bout `json:"TorikumiData"`
}

// Bout is one raw per-bout record from the source site. The judge field
// indicates the winning side: 1 = east, 2 = west, anything else means the
// result is not yet decided.
type Bout struct {
	Judge     int         `json:"judge"`
	Technique string      `json:"technic_name_eng"`
	East      *Competitor `json:"east"`
	West      *Competitor `json:"west"`
}

// Competitor is one side of a raw bout record.
type Competitor struct {
	RikishiID int    `json:"rikishi_id"`
	Shikona   string `json:"shikona_eng"`
	Division  string `json:"banzuke_name_eng"`
}

// Matches converts a raw bout into canonical match records: two records for a
// decided bout (a win and the mirroring loss), none for an undecided one.
// Missing east/west sub-objects are treated as empty competitors rather than
// an error so a malformed bout never aborts the batch.
func (b *Bout) Matches(tournamentID, day int, matchDate time.Time) []*Match {
	east := b.East
	if east == nil {
		east = &Competitor{}
	}
	west := b.West
	if west == nil {
		west = &Competitor{}
	}

	// Both competitors in a bout share a division.
	division := east.Division
	if division == "" {
		division = west.Division
	}

	var winner, loser *Competitor
	switch b.Judge {
	case 1:
		winner, loser = east, west
	case 2:
		winner, loser = west, east
	default:
		return nil
	}

	tournamentDay := sql.NullInt32{}
	if day > 0 {
		tournamentDay = sql.NullInt32{Int32: int32(day), Valid: true}
	}

	return []*Match{
		{
			TournamentID:  tournamentID,
			TournamentDay: tournamentDay,
			MatchDate:     matchDate,
			Division:      division,
			WrestlerName:  winner.Shikona,
			OpponentName:  loser.Shikona,
			WrestlerID:    externalID(winner.RikishiID),
			OpponentID:    externalID(loser.RikishiID),
			Result:        ResultWin,
			Technique:     b.Technique,
		},
		{
			TournamentID:  tournamentID,
			TournamentDay: tournamentDay,
			MatchDate:     matchDate,
			Division:      division,
			WrestlerName:  loser.Shikona,
			OpponentName:  winner.Shikona,
			WrestlerID:    externalID(loser.RikishiID),
			OpponentID:    externalID(winner.RikishiID),
			Result:        ResultLoss,
			Technique:     b.Technique,
		},
	}
}

func externalID(id int) sql.NullInt32 {
	if id <= 0 {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(id), Valid: true}
}
