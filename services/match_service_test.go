package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuttlehq/federation-system/models"
)

func buildFourSeedBracket(t *testing.T, env *testEnv, format models.CategoryFormat) *models.Bracket {
	t.Helper()
	categoryID := env.createCategory(t, format)
	bracket, err := env.bracketSvc.BuildBracket(context.Background(), categoryID, refs("p1", "p2", "p3", "p4"))
	require.NoError(t, err)
	return bracket
}

func TestSubmitScorePropagatesWinner(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())

	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)
	result, err := env.matchSvc.SubmitScore(context.Background(), semi1.ID, winA(), "referee-7", false)
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusCompleted, result.Match.Status)
	assert.True(t, result.Propagated)
	require.NotNil(t, result.Event)
	assert.Equal(t, models.EventMatchCompleted, result.Event.Type)
	require.NotNil(t, result.Event.SubmittedBy)
	assert.Equal(t, "referee-7", *result.Event.SubmittedBy)

	final := env.findMatch(t, bracket.ID, models.SideWinners, 2, 1)
	require.NotNil(t, final.SlotA)
	assert.Equal(t, models.ParticipantRef("p1"), *final.SlotA)
	assert.Nil(t, final.SlotB)
}

func TestSubmitScoreDuplicateRejected(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())

	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)
	_, err := env.matchSvc.SubmitScore(context.Background(), semi1.ID, winA(), "referee-7", false)
	require.NoError(t, err)

	_, err = env.matchSvc.SubmitScore(context.Background(), semi1.ID, winA(), "referee-7", false)
	assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
}

func TestCorrectionBeforeDownstreamProgress(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())

	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)
	_, err := env.matchSvc.SubmitScore(context.Background(), semi1.ID, winA(), "referee-7", false)
	require.NoError(t, err)

	// The table official recorded the sides swapped; the correction
	// overwrites the already-propagated final slot.
	result, err := env.matchSvc.SubmitScore(context.Background(), semi1.ID, winB(), "referee-7", true)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantRef("p4"), *result.Match.WinnerRef)

	final := env.findMatch(t, bracket.ID, models.SideWinners, 2, 1)
	require.NotNil(t, final.SlotA)
	assert.Equal(t, models.ParticipantRef("p4"), *final.SlotA)
}

func TestCorrectionConflictAfterDownstreamProgressed(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())

	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)
	semi2 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 2)
	final := env.findMatch(t, bracket.ID, models.SideWinners, 2, 1)

	_, err := env.matchSvc.SubmitScore(context.Background(), semi1.ID, winA(), "ref", false)
	require.NoError(t, err)
	_, err = env.matchSvc.SubmitScore(context.Background(), semi2.ID, winA(), "ref", false)
	require.NoError(t, err)
	_, err = env.matchSvc.SubmitScore(context.Background(), final.ID, winA(), "ref", false)
	require.NoError(t, err)

	_, err = env.matchSvc.SubmitScore(context.Background(), semi1.ID, winB(), "ref", true)
	assert.ErrorIs(t, err, ErrCorrectionConflict)
}

func TestForfeitPropagatesOpponent(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())

	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)
	result, err := env.matchSvc.Forfeit(context.Background(), semi1.ID, ForfeitSideA, "injury", "desk")
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusForfeited, result.Match.Status)
	assert.True(t, result.Propagated)
	require.NotNil(t, result.Event)
	assert.Equal(t, models.EventMatchForfeited, result.Event.Type)

	final := env.findMatch(t, bracket.ID, models.SideWinners, 2, 1)
	require.NotNil(t, final.SlotA)
	assert.Equal(t, models.ParticipantRef("p4"), *final.SlotA)
}

func TestDoubleForfeitWalkoverAndResolve(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())

	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)
	semi2 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 2)

	result, err := env.matchSvc.Forfeit(context.Background(), semi1.ID, ForfeitSideBoth, "double disqualification", "desk")
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusNoContest, result.Match.Status)
	require.NotNil(t, result.Event)
	assert.Equal(t, models.EventMatchNoContest, result.Event.Type)

	final := env.findMatch(t, bracket.ID, models.SideWinners, 2, 1)
	require.NotNil(t, final.SlotA)
	assert.Equal(t, models.WalkoverRef, *final.SlotA)

	_, err = env.matchSvc.SubmitScore(context.Background(), semi2.ID, winA(), "ref", false)
	require.NoError(t, err)

	// The final is blocked until an administrator resolves the walkover.
	_, err = env.matchSvc.StartMatch(context.Background(), final.ID)
	assert.ErrorIs(t, err, ErrMatchNotReady)

	_, err = env.matchSvc.ResolveSlot(context.Background(), final.ID, models.SlotA, "p1")
	require.NoError(t, err)

	_, err = env.matchSvc.StartMatch(context.Background(), final.ID)
	require.NoError(t, err)
}

func TestResolveSlotGuards(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())
	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)

	_, err := env.matchSvc.ResolveSlot(context.Background(), semi1.ID, 3, "p9")
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = env.matchSvc.ResolveSlot(context.Background(), semi1.ID, models.SlotA, models.ByeRef)
	assert.ErrorIs(t, err, ErrValidationFailed)

	// The slot holds a real participant, not a walkover sentinel.
	_, err = env.matchSvc.ResolveSlot(context.Background(), semi1.ID, models.SlotA, "p9")
	assert.ErrorIs(t, err, ErrSlotNotResolvable)
}

func TestCancelDoesNotPropagate(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())

	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)
	result, err := env.matchSvc.Cancel(context.Background(), semi1.ID, "admin")
	require.NoError(t, err)

	assert.Equal(t, models.MatchStatusCanceled, result.Match.Status)
	assert.False(t, result.Propagated)
	require.NotNil(t, result.Event)
	assert.Equal(t, models.EventMatchCanceled, result.Event.Type)
	assert.False(t, result.Event.Propagated)

	final := env.findMatch(t, bracket.ID, models.SideWinners, 2, 1)
	assert.Nil(t, final.SlotA)
}

func TestPostponeAndReschedule(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())
	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)

	result, err := env.matchSvc.Postpone(context.Background(), semi1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusPostponed, result.Match.Status)
	assert.Nil(t, result.Event, "postpone is not a terminal transition")

	court := "court-2"
	newTime := time.Date(2025, 7, 2, 14, 30, 0, 0, time.UTC)
	result, err = env.matchSvc.Reschedule(context.Background(), semi1.ID, newTime, &court)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusScheduled, result.Match.Status)
	require.NotNil(t, result.Match.ScheduledAt)
	assert.True(t, result.Match.ScheduledAt.Equal(newTime))
	require.NotNil(t, result.Match.CourtID)
	assert.Equal(t, "court-2", *result.Match.CourtID)

	_, err = env.matchSvc.Reschedule(context.Background(), semi1.ID, time.Time{}, nil)
	assert.ErrorIs(t, err, ErrRescheduleTimeRequired)
}

func TestConcurrentSiblingSubmissions(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())

	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)
	semi2 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = env.matchSvc.SubmitScore(context.Background(), semi1.ID, winA(), "ref-a", false)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = env.matchSvc.SubmitScore(context.Background(), semi2.ID, winB(), "ref-b", false)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	final := env.findMatch(t, bracket.ID, models.SideWinners, 2, 1)
	require.NotNil(t, final.SlotA)
	require.NotNil(t, final.SlotB)
	assert.Equal(t, models.ParticipantRef("p1"), *final.SlotA)
	assert.Equal(t, models.ParticipantRef("p3"), *final.SlotB)
}

func TestFinalCompletesBracket(t *testing.T) {
	env := newTestEnv(t)
	bracket := buildFourSeedBracket(t, env, singleElimFormat())

	for pos := 1; pos <= 2; pos++ {
		semi := env.findMatch(t, bracket.ID, models.SideWinners, 1, pos)
		_, err := env.matchSvc.SubmitScore(context.Background(), semi.ID, winA(), "ref", false)
		require.NoError(t, err)
	}
	final := env.findMatch(t, bracket.ID, models.SideWinners, 2, 1)
	_, err := env.matchSvc.SubmitScore(context.Background(), final.ID, winA(), "ref", false)
	require.NoError(t, err)

	stored, err := env.bracketRepo.GetByID(context.Background(), nil, bracket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BracketStatusCompleted, stored.Status)
}

func TestThirdPlacePlayoff(t *testing.T) {
	env := newTestEnv(t)
	format := singleElimFormat()
	format.ThirdPlacePlayoff = true
	bracket := buildFourSeedBracket(t, env, format)

	semi1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)
	semi2 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 2)

	_, err := env.matchSvc.SubmitScore(context.Background(), semi1.ID, winA(), "ref", false)
	require.NoError(t, err)

	// One semifinal down: no playoff yet.
	matches, err := env.matchRepo.ListByBracket(context.Background(), nil, bracket.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	_, err = env.matchSvc.SubmitScore(context.Background(), semi2.ID, winB(), "ref", false)
	require.NoError(t, err)

	third := env.findMatch(t, bracket.ID, models.SidePlacement, 2, 1)
	assert.True(t, third.IsThirdPlace)
	assert.Equal(t, models.MatchStatusScheduled, third.Status)
	require.NotNil(t, third.SlotA)
	require.NotNil(t, third.SlotB)
	assert.Equal(t, models.ParticipantRef("p4"), *third.SlotA)
	assert.Equal(t, models.ParticipantRef("p2"), *third.SlotB)

	// The playoff completes like any other match, but decides no bracket.
	_, err = env.matchSvc.SubmitScore(context.Background(), third.ID, winA(), "ref", false)
	require.NoError(t, err)

	stored, err := env.bracketRepo.GetByID(context.Background(), nil, bracket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BracketStatusActive, stored.Status, "only the final completes the bracket")
}

func TestDoubleEliminationProgression(t *testing.T) {
	env := newTestEnv(t)
	format := singleElimFormat()
	format.BracketKind = models.BracketDoubleElimination
	bracket := buildFourSeedBracket(t, env, format)

	matches, err := env.matchRepo.ListByBracket(context.Background(), nil, bracket.ID)
	require.NoError(t, err)
	require.Len(t, matches, 6)

	wb1 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 1)
	wb2 := env.findMatch(t, bracket.ID, models.SideWinners, 1, 2)

	// p1 and p2 advance; p4 and p3 drop into the loser's bracket.
	_, err = env.matchSvc.SubmitScore(context.Background(), wb1.ID, winA(), "ref", false)
	require.NoError(t, err)
	_, err = env.matchSvc.SubmitScore(context.Background(), wb2.ID, winA(), "ref", false)
	require.NoError(t, err)

	lb1 := env.findMatch(t, bracket.ID, models.SideLosers, 1, 1)
	require.NotNil(t, lb1.SlotA)
	require.NotNil(t, lb1.SlotB)
	assert.Equal(t, models.ParticipantRef("p4"), *lb1.SlotA)
	assert.Equal(t, models.ParticipantRef("p3"), *lb1.SlotB)

	wbFinal := env.findMatch(t, bracket.ID, models.SideWinners, 2, 1)
	assert.Equal(t, models.ParticipantRef("p1"), *wbFinal.SlotA)
	assert.Equal(t, models.ParticipantRef("p2"), *wbFinal.SlotB)

	// p4 survives the loser's bracket; p2 loses the winner's final and
	// drops down for one more chance.
	_, err = env.matchSvc.SubmitScore(context.Background(), lb1.ID, winA(), "ref", false)
	require.NoError(t, err)
	_, err = env.matchSvc.SubmitScore(context.Background(), wbFinal.ID, winA(), "ref", false)
	require.NoError(t, err)

	lb2 := env.findMatch(t, bracket.ID, models.SideLosers, 2, 1)
	require.NotNil(t, lb2.SlotA)
	require.NotNil(t, lb2.SlotB)
	assert.Equal(t, models.ParticipantRef("p4"), *lb2.SlotA)
	assert.Equal(t, models.ParticipantRef("p2"), *lb2.SlotB)

	_, err = env.matchSvc.SubmitScore(context.Background(), lb2.ID, winB(), "ref", false)
	require.NoError(t, err)

	grandFinal := env.findMatch(t, bracket.ID, models.SideWinners, 3, 1)
	require.NotNil(t, grandFinal.SlotA)
	require.NotNil(t, grandFinal.SlotB)
	assert.Equal(t, models.ParticipantRef("p1"), *grandFinal.SlotA)
	assert.Equal(t, models.ParticipantRef("p2"), *grandFinal.SlotB)

	_, err = env.matchSvc.SubmitScore(context.Background(), grandFinal.ID, winA(), "ref", false)
	require.NoError(t, err)

	stored, err := env.bracketRepo.GetByID(context.Background(), nil, bracket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BracketStatusCompleted, stored.Status)
}

func TestRoundRobinCompletion(t *testing.T) {
	env := newTestEnv(t)
	format := singleElimFormat()
	format.BracketKind = models.BracketRoundRobin
	categoryID := env.createCategory(t, format)

	bracket, err := env.bracketSvc.BuildBracket(context.Background(), categoryID, refs("p1", "p2", "p3"))
	require.NoError(t, err)

	matches, err := env.matchRepo.ListByBracket(context.Background(), nil, bracket.ID)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	for i, m := range matches {
		result, submitErr := env.matchSvc.SubmitScore(context.Background(), m.ID, winA(), "ref", false)
		require.NoError(t, submitErr)
		assert.False(t, result.Propagated, "round robin has no propagation")

		stored, getErr := env.bracketRepo.GetByID(context.Background(), nil, bracket.ID)
		require.NoError(t, getErr)
		if i < len(matches)-1 {
			assert.Equal(t, models.BracketStatusActive, stored.Status)
		} else {
			assert.Equal(t, models.BracketStatusCompleted, stored.Status)
		}
	}
}

func TestGetMatchNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.matchSvc.GetMatch(context.Background(), 42)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
