package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func badmintonFormat() CategoryFormat {
	return CategoryFormat{
		BracketKind: BracketSingleElimination,
		Match:       MatchFormat{BestOf: 3},
		Scoring:     ScoringFormat{PointsTo: 11, WinBy: 2},
	}
}

func TestWinnerSlotStraightSets(t *testing.T) {
	score := Score{Sets: []SetScore{{A: 11, B: 5}, {A: 11, B: 7}}}

	slot, err := score.WinnerSlot(badmintonFormat())
	require.NoError(t, err)
	assert.Equal(t, SlotA, slot)
}

func TestWinnerSlotThreeSets(t *testing.T) {
	score := Score{Sets: []SetScore{{A: 5, B: 11}, {A: 11, B: 9}, {A: 9, B: 11}}}

	slot, err := score.WinnerSlot(badmintonFormat())
	require.NoError(t, err)
	assert.Equal(t, SlotB, slot)
}

func TestWinnerSlotExtendedGame(t *testing.T) {
	format := badmintonFormat()

	score := Score{Sets: []SetScore{{A: 15, B: 13}, {A: 11, B: 3}}}
	slot, err := score.WinnerSlot(format)
	require.NoError(t, err)
	assert.Equal(t, SlotA, slot)

	// An extended game must end the moment the margin is reached.
	score = Score{Sets: []SetScore{{A: 15, B: 12}, {A: 11, B: 3}}}
	_, err = score.WinnerSlot(format)
	assert.Error(t, err)
}

func TestWinnerSlotWinByOne(t *testing.T) {
	format := badmintonFormat()
	format.Scoring = ScoringFormat{PointsTo: 21, WinBy: 1}

	score := Score{Sets: []SetScore{{A: 21, B: 20}, {A: 21, B: 19}}}
	slot, err := score.WinnerSlot(format)
	require.NoError(t, err)
	assert.Equal(t, SlotA, slot)
}

func TestWinnerSlotRejectsInvalidScores(t *testing.T) {
	format := badmintonFormat()

	cases := []struct {
		name string
		sets []SetScore
	}{
		{"empty", nil},
		{"incomplete match", []SetScore{{A: 11, B: 5}}},
		{"tie", []SetScore{{A: 11, B: 11}, {A: 11, B: 5}}},
		{"below threshold", []SetScore{{A: 10, B: 5}, {A: 11, B: 5}}},
		{"insufficient margin", []SetScore{{A: 11, B: 10}, {A: 11, B: 5}}},
		{"negative points", []SetScore{{A: -1, B: 11}, {A: 11, B: 5}}},
		{"set after decision", []SetScore{{A: 11, B: 5}, {A: 11, B: 7}, {A: 11, B: 9}}},
		{"too many sets", []SetScore{{A: 11, B: 5}, {A: 5, B: 11}, {A: 11, B: 5}, {A: 5, B: 11}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Score{Sets: tc.sets}.WinnerSlot(format)
			assert.Error(t, err)
		})
	}
}

func TestGamesToWin(t *testing.T) {
	f := badmintonFormat()
	assert.Equal(t, 2, f.GamesToWin())

	f.Match.BestOf = 5
	assert.Equal(t, 3, f.GamesToWin())

	f.Match.BestOf = 1
	assert.Equal(t, 1, f.GamesToWin())
}

func TestCategoryFormatValidate(t *testing.T) {
	valid := badmintonFormat()
	require.NoError(t, valid.Validate())

	f := valid
	f.BracketKind = "swiss"
	assert.Error(t, f.Validate())

	f = valid
	f.Match.BestOf = 2
	assert.Error(t, f.Validate())

	f = valid
	f.Scoring.PointsTo = 0
	assert.Error(t, f.Validate())

	f = valid
	f.Scoring.WinBy = 0
	assert.Error(t, f.Validate())

	f = valid
	f.BracketKind = BracketRoundRobin
	f.ThirdPlacePlayoff = true
	assert.Error(t, f.Validate())
}

func TestParticipantRefIsReal(t *testing.T) {
	assert.True(t, ParticipantRef("p42").IsReal())
	assert.False(t, ByeRef.IsReal())
	assert.False(t, WalkoverRef.IsReal())
	assert.False(t, ParticipantRef("").IsReal())
}

func TestByeResolution(t *testing.T) {
	real := ParticipantRef("p1")
	bye := ByeRef

	m := &Match{SlotA: &real, SlotB: &bye}
	winner, loser := m.ByeResolution()
	assert.Equal(t, real, winner)
	assert.Equal(t, bye, loser)

	m = &Match{SlotA: &bye, SlotB: &real}
	winner, loser = m.ByeResolution()
	assert.Equal(t, real, winner)
	assert.Equal(t, bye, loser)

	// Two byes keep the cascade flowing: the sentinel wins.
	m = &Match{SlotA: &bye, SlotB: &bye}
	winner, _ = m.ByeResolution()
	assert.Equal(t, bye, winner)
}
