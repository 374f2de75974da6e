package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shuttlehq/federation-system/models"
	"github.com/shuttlehq/federation-system/repositories"
)

// progressionResolver pushes the winner (and loser, where the bracket
// kind defines one) of a terminal match into the downstream slots named
// by the match's next pointers. All writes happen on the caller's
// transaction, so a match transition and its propagation commit together
// or not at all.
type progressionResolver struct {
	matches  repositories.MatchRepository
	brackets repositories.BracketRepository
	logger   *slog.Logger
}

func newProgressionResolver(matches repositories.MatchRepository, brackets repositories.BracketRepository, logger *slog.Logger) *progressionResolver {
	return &progressionResolver{matches: matches, brackets: brackets, logger: logger}
}

// propagate applies the progression rules for a match that just entered a
// terminal state and reports whether any downstream slot was written.
//
// A no_contest match has no winner: both downstream slots receive the
// walkover sentinel and stay blocked until an administrator resolves
// them. A canceled match propagates nothing.
func (p *progressionResolver) propagate(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, format models.CategoryFormat, m *models.Match, correction bool) (bool, error) {
	if m.Status == models.MatchStatusCanceled {
		return false, nil
	}

	winner := m.WinnerRef
	loser := m.LoserRef
	if m.Status == models.MatchStatusNoContest {
		walkover := models.WalkoverRef
		winner = &walkover
		loser = &walkover
	}

	propagated := false

	if m.WinnerNextMatchID != nil && winner != nil {
		if m.WinnerNextSlot == nil {
			return false, fmt.Errorf("%w: match %d has a winner target but no slot", ErrBracketIntegrity, m.ID)
		}
		if err := p.fillDownstream(ctx, exec, bracket, format, *m.WinnerNextMatchID, *m.WinnerNextSlot, *winner, correction); err != nil {
			return false, err
		}
		propagated = true
	}

	if m.LoserNextMatchID != nil && loser != nil {
		if m.LoserNextSlot == nil {
			return false, fmt.Errorf("%w: match %d has a loser target but no slot", ErrBracketIntegrity, m.ID)
		}
		if err := p.fillDownstream(ctx, exec, bracket, format, *m.LoserNextMatchID, *m.LoserNextSlot, *loser, correction); err != nil {
			return false, err
		}
		propagated = true
	}

	created, err := p.maybeCreateThirdPlace(ctx, exec, bracket, format, m)
	if err != nil {
		return false, err
	}
	propagated = propagated || created

	if err := p.maybeCompleteBracket(ctx, exec, bracket, m); err != nil {
		return false, err
	}

	return propagated, nil
}

// fillDownstream writes one participant into one slot of the downstream
// match, locking it first so the write is serialized against any direct
// operation on that match. Regular propagation is a compare-and-swap on
// an empty slot; a correction overwrites, but only while the downstream
// match is still waiting in scheduled.
func (p *progressionResolver) fillDownstream(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, format models.CategoryFormat, targetID, slot int, ref models.ParticipantRef, correction bool) error {
	target, err := p.matches.GetForUpdate(ctx, exec, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return fmt.Errorf("%w: downstream match %d is missing", ErrBracketIntegrity, targetID)
		}
		return err
	}

	if correction {
		if target.Status != models.MatchStatusScheduled {
			return fmt.Errorf("%w: match %d is %s", ErrCorrectionConflict, target.ID, target.Status)
		}
		if err := p.matches.FillSlot(ctx, exec, targetID, slot, ref, true); err != nil {
			return err
		}
	} else {
		err := p.matches.FillSlot(ctx, exec, targetID, slot, ref, false)
		if errors.Is(err, repositories.ErrMatchSlotOccupied) {
			// Re-propagating the same participant is a no-op; anything
			// else is a real conflict.
			if current := target.Slot(slot); current != nil && *current == ref {
				return nil
			}
			return fmt.Errorf("%w: match %d slot %d", ErrSlotConflict, target.ID, slot)
		}
		if err != nil {
			return err
		}
	}

	target.SetSlot(slot, ref)

	// A downstream match that ends up facing a bye resolves immediately,
	// so byes cascade through the loser's bracket without score entry.
	if target.Status == models.MatchStatusScheduled && target.SlotsFilled() && target.HasBye() {
		return p.resolveBye(ctx, exec, bracket, format, target)
	}
	return nil
}

// resolveBye completes a match that has no real opposition: the filled
// side wins without score entry and propagation runs exactly as for a
// scored match.
func (p *progressionResolver) resolveBye(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, format models.CategoryFormat, m *models.Match) error {
	winner, loser := m.ByeResolution()
	m.Status = models.MatchStatusCompleted
	m.WinnerRef = &winner
	m.LoserRef = &loser

	if err := p.matches.UpdateState(ctx, exec, m); err != nil {
		return err
	}
	_, err := p.propagate(ctx, exec, bracket, format, m, false)
	return err
}

// maybeCreateThirdPlace lazily instantiates the third place playoff the
// first time both semifinal losers are known. The semifinals' loser
// pointers are wired at creation time so later corrections flow through
// the normal propagation path.
func (p *progressionResolver) maybeCreateThirdPlace(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, format models.CategoryFormat, m *models.Match) (bool, error) {
	if !m.IsSemifinal || format.BracketKind != models.BracketSingleElimination || !format.ThirdPlacePlayoff {
		return false, nil
	}

	all, err := p.matches.ListByBracket(ctx, exec, bracket.ID)
	if err != nil {
		return false, err
	}

	var semis []*models.Match
	for _, match := range all {
		if match.IsThirdPlace {
			// Already created.
			return false, nil
		}
		if match.IsSemifinal {
			semis = append(semis, match)
		}
	}
	if len(semis) != 2 {
		return false, fmt.Errorf("%w: expected 2 semifinals, found %d", ErrBracketIntegrity, len(semis))
	}

	losers := make([]models.ParticipantRef, 2)
	var finalRound int
	for i, semi := range semis {
		// The freshly transitioned match is passed in separately; the
		// listed copy may predate the current transaction's update.
		if semi.ID == m.ID {
			semi = m
		}
		if !semi.Status.IsTerminal() {
			return false, nil
		}
		if semi.LoserRef == nil {
			losers[i] = models.WalkoverRef
		} else {
			losers[i] = *semi.LoserRef
		}
		finalRound = semi.Round + 1
	}

	third := &models.Match{
		BracketID:    bracket.ID,
		Side:         models.SidePlacement,
		Round:        finalRound,
		Position:     1,
		SlotA:        &losers[0],
		SlotB:        &losers[1],
		Status:       models.MatchStatusScheduled,
		IsThirdPlace: true,
	}
	if err := p.matches.Create(ctx, exec, third); err != nil {
		return false, err
	}
	p.logger.Info("third place playoff created",
		slog.Int("bracket_id", bracket.ID), slog.Int("match_id", third.ID))

	for i, semi := range semis {
		slot := models.SlotA
		if i == 1 {
			slot = models.SlotB
		}
		if err := p.matches.UpdateNextPointers(ctx, exec, semi.ID, semi.WinnerNextMatchID, semi.WinnerNextSlot, &third.ID, &slot); err != nil {
			return false, err
		}
	}

	// Two no_contest semifinals would pit walkover against walkover;
	// nothing auto-resolves here, the slot stays for the administrator.
	return true, nil
}

// maybeCompleteBracket closes the bracket once its deciding match is
// done: the final for elimination kinds, the last unfinished match for
// round robin.
func (p *progressionResolver) maybeCompleteBracket(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket, m *models.Match) error {
	if bracket.Status == models.BracketStatusCompleted {
		return nil
	}

	done := false
	switch bracket.Kind {
	case models.BracketRoundRobin:
		all, err := p.matches.ListByBracket(ctx, exec, bracket.ID)
		if err != nil {
			return err
		}
		done = true
		for _, match := range all {
			if match.ID == m.ID {
				continue
			}
			if !match.Status.IsTerminal() {
				done = false
				break
			}
		}
	default:
		done = m.IsFinal && (m.Status == models.MatchStatusCompleted || m.Status == models.MatchStatusForfeited)
	}

	if !done {
		return nil
	}
	bracket.Status = models.BracketStatusCompleted
	return p.brackets.UpdateStatus(ctx, exec, bracket.ID, models.BracketStatusCompleted)
}
