package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var matchDate = time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

func sampleBout(judge int) Bout {
	return Bout{
		Judge:     judge,
		Technique: "yorikiri",
		East: &Competitor{
			RikishiID: 20,
			Shikona:   "Hoshoryu",
			Division:  "Makuuchi",
		},
		West: &Competitor{
			RikishiID: 42,
			Shikona:   "Onosato",
			Division:  "Makuuchi",
		},
	}
}

func TestBoutMatches_EastWins(t *testing.T) {
	bout := sampleBout(1)

	matches := bout.Matches(628, 3, matchDate)
	require.Len(t, matches, 2, "Decided bout should yield two records")

	win, loss := matches[0], matches[1]

	assert.Equal(t, ResultWin, win.Result)
	assert.Equal(t, "Hoshoryu", win.WrestlerName, "East competitor should be the winner")
	assert.Equal(t, "Onosato", win.OpponentName)
	assert.Equal(t, int32(20), win.WrestlerID.Int32)
	assert.Equal(t, "yorikiri", win.Technique)

	assert.Equal(t, ResultLoss, loss.Result)
	assert.Equal(t, "Onosato", loss.WrestlerName, "West competitor should be the loser")
	assert.Equal(t, "Hoshoryu", loss.OpponentName)
	assert.Equal(t, "yorikiri", loss.Technique, "Both records share the technique")

	for _, m := range matches {
		assert.Equal(t, 628, m.TournamentID)
		assert.Equal(t, int32(3), m.TournamentDay.Int32)
		assert.Equal(t, matchDate, m.MatchDate)
		assert.Equal(t, "Makuuchi", m.Division)
	}
}

func TestBoutMatches_WestWins(t *testing.T) {
	bout := sampleBout(2)

	matches := bout.Matches(628, 3, matchDate)
	require.Len(t, matches, 2)

	assert.Equal(t, ResultWin, matches[0].Result)
	assert.Equal(t, "Onosato", matches[0].WrestlerName, "West competitor should be the winner")
	assert.Equal(t, "Hoshoryu", matches[0].OpponentName)

	assert.Equal(t, ResultLoss, matches[1].Result)
	assert.Equal(t, "Hoshoryu", matches[1].WrestlerName)
}

func TestBoutMatches_Undecided(t *testing.T) {
	for _, judge := range []int{0, 3, -1} {
		bout := sampleBout(judge)
		matches := bout.Matches(628, 3, matchDate)
		assert.Empty(t, matches, "judge=%d should yield no records", judge)
	}
}

func TestBoutMatches_MissingCompetitor(t *testing.T) {
	bout := sampleBout(1)
	bout.East = nil

	matches := bout.Matches(628, 3, matchDate)
	require.Len(t, matches, 2, "Missing side should not abort parsing")

	assert.Equal(t, "", matches[0].WrestlerName)
	assert.False(t, matches[0].WrestlerID.Valid)
	assert.Equal(t, "Makuuchi", matches[0].Division, "Division should fall back to the other side")
	assert.Equal(t, "Onosato", matches[0].OpponentName)
}

func TestBoutMatches_EmptyTechnique(t *testing.T) {
	bout := sampleBout(1)
	bout.Technique = ""

	matches := bout.Matches(628, 3, matchDate)
	require.Len(t, matches, 2)
	assert.Equal(t, "", matches[0].Technique)
}

func TestMatchKey(t *testing.T) {
	bout := sampleBout(1)
	matches := bout.Matches(628, 3, matchDate)
	require.Len(t, matches, 2)

	key := matches[0].Key()
	assert.Equal(t, MatchKey{
		TournamentID: 628,
		WrestlerName: "Hoshoryu",
		OpponentName: "Onosato",
		MatchDate:    "2025-03-11",
	}, key)

	assert.NotEqual(t, key, matches[1].Key(), "Win and loss records must have distinct keys")
}
