package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuttlehq/federation-system/models"
)

func TestDoubleEliminationMatchCount(t *testing.T) {
	g := NewDoubleEliminationGenerator()

	for _, n := range []int{2, 3, 4, 6, 8, 16} {
		matches, err := g.GenerateBracket(context.Background(), GenerateParams{Seeds: seeds(n)})
		require.NoError(t, err)
		size := BracketSize(n)
		assert.Len(t, matches, 2*size-2, "n=%d", n)
	}
}

func TestDoubleEliminationRequiresTwoParticipants(t *testing.T) {
	g := NewDoubleEliminationGenerator()

	_, err := g.GenerateBracket(context.Background(), GenerateParams{Seeds: seeds(1)})
	assert.Error(t, err)
}

func TestDoubleEliminationTwoParticipants(t *testing.T) {
	g := NewDoubleEliminationGenerator()

	matches, err := g.GenerateBracket(context.Background(), GenerateParams{Seeds: seeds(2)})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	wbFinal := matches[0]
	gf := matches[1]
	assert.Equal(t, "W-R1M1", wbFinal.UID)
	assert.Equal(t, "GF", gf.UID)
	assert.True(t, gf.IsFinal)

	// No loser's bracket: the loser of the only match drops straight
	// into the grand final.
	require.NotNil(t, gf.WinnerSourceAUID)
	assert.Equal(t, "W-R1M1", *gf.WinnerSourceAUID)
	require.NotNil(t, gf.LoserSourceBUID)
	assert.Equal(t, "W-R1M1", *gf.LoserSourceBUID)
}

func TestDoubleEliminationEverySlotHasOneSource(t *testing.T) {
	g := NewDoubleEliminationGenerator()

	matches, err := g.GenerateBracket(context.Background(), GenerateParams{Seeds: seeds(8)})
	require.NoError(t, err)

	for _, m := range matches {
		if m.Side != models.SideLosers {
			continue
		}
		sourcesA := 0
		if m.WinnerSourceAUID != nil {
			sourcesA++
		}
		if m.LoserSourceAUID != nil {
			sourcesA++
		}
		sourcesB := 0
		if m.WinnerSourceBUID != nil {
			sourcesB++
		}
		if m.LoserSourceBUID != nil {
			sourcesB++
		}
		assert.Equal(t, 1, sourcesA, "%s slot A", m.UID)
		assert.Equal(t, 1, sourcesB, "%s slot B", m.UID)
	}
}

func TestDoubleEliminationEveryWinnersLoserDropsOnce(t *testing.T) {
	g := NewDoubleEliminationGenerator()

	matches, err := g.GenerateBracket(context.Background(), GenerateParams{Seeds: seeds(16)})
	require.NoError(t, err)

	drops := make(map[string]int)
	for _, m := range matches {
		if m.LoserSourceAUID != nil {
			drops[*m.LoserSourceAUID]++
		}
		if m.LoserSourceBUID != nil {
			drops[*m.LoserSourceBUID]++
		}
	}

	for _, m := range matches {
		if m.Side != models.SideWinners || m.UID == "GF" {
			continue
		}
		assert.Equal(t, 1, drops[m.UID], "loser of %s must drop exactly once", m.UID)
	}
}

func TestDoubleEliminationLosersRoundSizes(t *testing.T) {
	// Rounds 2k-1 and 2k both hold size/2^(k+1) matches.
	assert.Equal(t, 2, losersRoundSize(8, 1))
	assert.Equal(t, 2, losersRoundSize(8, 2))
	assert.Equal(t, 1, losersRoundSize(8, 3))
	assert.Equal(t, 1, losersRoundSize(8, 4))
	assert.Equal(t, 4, losersRoundSize(16, 1))
	assert.Equal(t, 1, losersRoundSize(16, 6))
}

func TestDoubleEliminationGrandFinal(t *testing.T) {
	g := NewDoubleEliminationGenerator()

	matches, err := g.GenerateBracket(context.Background(), GenerateParams{Seeds: seeds(8)})
	require.NoError(t, err)

	var gf *BracketMatch
	for _, m := range matches {
		if m.UID == "GF" {
			gf = m
		}
	}
	require.NotNil(t, gf)
	assert.True(t, gf.IsFinal)
	assert.Equal(t, 4, gf.Round)
	require.NotNil(t, gf.WinnerSourceAUID)
	assert.Equal(t, "W-R3M1", *gf.WinnerSourceAUID)
	require.NotNil(t, gf.WinnerSourceBUID)
	assert.Equal(t, "L-R4M1", *gf.WinnerSourceBUID)
}

func TestDoubleEliminationDropPositionsReversedOnEvenRounds(t *testing.T) {
	g := NewDoubleEliminationGenerator()

	matches, err := g.GenerateBracket(context.Background(), GenerateParams{Seeds: seeds(8)})
	require.NoError(t, err)

	byUID := make(map[string]*BracketMatch)
	for _, m := range matches {
		byUID[m.UID] = m
	}

	// Loser's round 2 receives winner's round 2 losers (k=2, even):
	// positions are reversed so round-1 opponents cannot rematch at once.
	lb2m1 := byUID["L-R2M1"]
	require.NotNil(t, lb2m1)
	require.NotNil(t, lb2m1.LoserSourceBUID)
	assert.Equal(t, "W-R2M2", *lb2m1.LoserSourceBUID)

	lb2m2 := byUID["L-R2M2"]
	require.NotNil(t, lb2m2)
	require.NotNil(t, lb2m2.LoserSourceBUID)
	assert.Equal(t, "W-R2M1", *lb2m2.LoserSourceBUID)

	// Loser's round 4 receives the winner's final loser (k=3, odd): no
	// reversal.
	lb4m1 := byUID["L-R4M1"]
	require.NotNil(t, lb4m1)
	require.NotNil(t, lb4m1.LoserSourceBUID)
	assert.Equal(t, "W-R3M1", *lb4m1.LoserSourceBUID)
}
