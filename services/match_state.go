package services

import (
	"fmt"
	"time"

	"github.com/shuttlehq/federation-system/models"
)

// ForfeitSide names which side of a match is forfeiting.
type ForfeitSide int

const (
	ForfeitSideA    ForfeitSide = models.SlotA
	ForfeitSideB    ForfeitSide = models.SlotB
	ForfeitSideBoth ForfeitSide = 3
)

// matchTransitions is the allowed transition table of the match state
// machine. Terminal states have no outgoing edges; postponed loops back
// to scheduled once a new time is set.
var matchTransitions = map[models.MatchStatus][]models.MatchStatus{
	models.MatchStatusScheduled: {
		models.MatchStatusInProgress,
		models.MatchStatusPostponed,
		models.MatchStatusCompleted, // direct score entry, guarded by slot resolution
		models.MatchStatusForfeited,
		models.MatchStatusNoContest,
		models.MatchStatusCanceled,
	},
	models.MatchStatusInProgress: {
		models.MatchStatusCompleted,
		models.MatchStatusForfeited,
		models.MatchStatusNoContest,
		models.MatchStatusCanceled,
	},
	models.MatchStatusPostponed: {
		models.MatchStatusScheduled,
		models.MatchStatusForfeited,
		models.MatchStatusNoContest,
		models.MatchStatusCanceled,
	},
	models.MatchStatusCompleted: {},
	models.MatchStatusForfeited: {},
	models.MatchStatusNoContest: {},
	models.MatchStatusCanceled:  {},
}

func canTransition(from, to models.MatchStatus) bool {
	for _, allowed := range matchTransitions[from] {
		if to == allowed {
			return true
		}
	}
	return false
}

func guardTransition(m *models.Match, to models.MatchStatus) error {
	if m.Status.IsTerminal() {
		return fmt.Errorf("%w: match %d is %s", ErrMatchTerminal, m.ID, m.Status)
	}
	if !canTransition(m.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, to)
	}
	return nil
}

// startMatch moves a match into play. Both slots must hold real
// participants; a court assignment is optional.
func startMatch(m *models.Match) error {
	if err := guardTransition(m, models.MatchStatusInProgress); err != nil {
		return err
	}
	if !m.SlotsResolved() {
		return fmt.Errorf("%w: match %d", ErrMatchNotReady, m.ID)
	}
	m.Status = models.MatchStatusInProgress
	return nil
}

// applyScore validates the payload against the category format and moves
// the match to completed with a winner/loser pair. The match struct is
// only mutated when validation passes.
func applyScore(m *models.Match, format models.CategoryFormat, score models.Score) error {
	if err := guardTransition(m, models.MatchStatusCompleted); err != nil {
		return err
	}
	if !m.SlotsResolved() {
		return fmt.Errorf("%w: match %d", ErrMatchNotReady, m.ID)
	}

	winnerSlot, err := score.WinnerSlot(format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}

	loserSlot := models.SlotB
	if winnerSlot == models.SlotB {
		loserSlot = models.SlotA
	}

	m.Status = models.MatchStatusCompleted
	m.Score = &score
	m.WinnerRef = m.Slot(winnerSlot)
	m.LoserRef = m.Slot(loserSlot)
	m.Verified = true
	return nil
}

// applyCorrection replaces the score of an already-completed match and
// recomputes the winner/loser pair. The caller re-runs propagation and
// enforces the downstream conflict rule.
func applyCorrection(m *models.Match, format models.CategoryFormat, score models.Score) error {
	if m.Status != models.MatchStatusCompleted {
		return fmt.Errorf("%w: match %d is %s", ErrCorrectionNotCompleted, m.ID, m.Status)
	}

	winnerSlot, err := score.WinnerSlot(format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}

	loserSlot := models.SlotB
	if winnerSlot == models.SlotB {
		loserSlot = models.SlotA
	}

	m.Score = &score
	m.WinnerRef = m.Slot(winnerSlot)
	m.LoserRef = m.Slot(loserSlot)
	return nil
}

// applyForfeit resolves a match without play. The non-forfeiting side
// wins; when both sides forfeit the match ends as no_contest with no
// winner and no loser.
func applyForfeit(m *models.Match, side ForfeitSide, reason string) error {
	if reason == "" {
		return ErrForfeitReasonRequired
	}

	target := models.MatchStatusForfeited
	if side == ForfeitSideBoth {
		target = models.MatchStatusNoContest
	}
	if err := guardTransition(m, target); err != nil {
		return err
	}

	switch side {
	case ForfeitSideA:
		if m.SlotA == nil || m.SlotB == nil {
			return fmt.Errorf("%w: match %d", ErrMatchNotReady, m.ID)
		}
		m.WinnerRef = m.SlotB
		m.LoserRef = m.SlotA
	case ForfeitSideB:
		if m.SlotA == nil || m.SlotB == nil {
			return fmt.Errorf("%w: match %d", ErrMatchNotReady, m.ID)
		}
		m.WinnerRef = m.SlotA
		m.LoserRef = m.SlotB
	case ForfeitSideBoth:
		m.WinnerRef = nil
		m.LoserRef = nil
	default:
		return fmt.Errorf("%w: unknown forfeit side %d", ErrValidationFailed, side)
	}

	m.Status = target
	m.ForfeitReason = &reason
	return nil
}

// applyPostpone parks a scheduled match until a new time is set.
func applyPostpone(m *models.Match) error {
	if err := guardTransition(m, models.MatchStatusPostponed); err != nil {
		return err
	}
	m.Status = models.MatchStatusPostponed
	return nil
}

// applyReschedule returns a scheduled or postponed match to scheduled
// with a new date/time. Slots and propagation are untouched.
func applyReschedule(m *models.Match, newTime time.Time) error {
	if newTime.IsZero() {
		return ErrRescheduleTimeRequired
	}
	if m.Status != models.MatchStatusScheduled && m.Status != models.MatchStatusPostponed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, models.MatchStatusScheduled)
	}
	m.Status = models.MatchStatusScheduled
	m.ScheduledAt = &newTime
	return nil
}

// applyCancel is terminal and blocks all further transitions.
func applyCancel(m *models.Match) error {
	if err := guardTransition(m, models.MatchStatusCanceled); err != nil {
		return err
	}
	m.Status = models.MatchStatusCanceled
	return nil
}
