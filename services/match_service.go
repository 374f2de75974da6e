package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shuttlehq/federation-system/events"
	"github.com/shuttlehq/federation-system/models"
	"github.com/shuttlehq/federation-system/repositories"
)

// MatchResult is returned by every mutating match operation: the updated
// match, whether downstream propagation occurred and the emitted domain
// event (nil for non-terminal transitions).
type MatchResult struct {
	Match      *models.Match      `json:"match"`
	Propagated bool               `json:"propagated"`
	Event      *models.MatchEvent `json:"event,omitempty"`
}

type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)

	// SubmitScore validates and applies a score. Re-submission on a
	// completed match is rejected unless correction is set, in which
	// case the winner is recomputed and propagation re-runs; the
	// correction fails when any downstream match already progressed.
	SubmitScore(ctx context.Context, matchID int, score models.Score, submittedBy string, correction bool) (*MatchResult, error)

	// StartMatch moves a scheduled match into play.
	StartMatch(ctx context.Context, matchID int) (*MatchResult, error)

	Forfeit(ctx context.Context, matchID int, side ForfeitSide, reason, submittedBy string) (*MatchResult, error)

	Postpone(ctx context.Context, matchID int) (*MatchResult, error)

	Reschedule(ctx context.Context, matchID int, newTime time.Time, courtID *string) (*MatchResult, error)

	Cancel(ctx context.Context, matchID int, submittedBy string) (*MatchResult, error)

	// ResolveSlot is the administrative action that replaces a walkover
	// sentinel left by a no_contest upstream match with a concrete
	// participant.
	ResolveSlot(ctx context.Context, matchID, slot int, ref models.ParticipantRef) (*MatchResult, error)
}

type matchService struct {
	tx           repositories.TxRunner
	matchRepo    repositories.MatchRepository
	bracketRepo  repositories.BracketRepository
	categoryRepo repositories.CategoryRepository
	eventRepo    repositories.EventRepository
	resolver     *progressionResolver
	hub          *events.Hub
	bracketSvc   BracketService
	logger       *slog.Logger
}

func NewMatchService(
	tx repositories.TxRunner,
	matchRepo repositories.MatchRepository,
	bracketRepo repositories.BracketRepository,
	categoryRepo repositories.CategoryRepository,
	eventRepo repositories.EventRepository,
	hub *events.Hub,
	bracketSvc BracketService,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:           tx,
		matchRepo:    matchRepo,
		bracketRepo:  bracketRepo,
		categoryRepo: categoryRepo,
		eventRepo:    eventRepo,
		resolver:     newProgressionResolver(matchRepo, bracketRepo, logger),
		hub:          hub,
		bracketSvc:   bracketSvc,
		logger:       logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, s.tx.Executor(), matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

// matchContext is everything a mutating operation needs after locking
// the match row.
type matchContext struct {
	match    *models.Match
	bracket  *models.Bracket
	category *models.Category
}

func (s *matchService) lockMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) (*matchContext, error) {
	match, err := s.matchRepo.GetForUpdate(ctx, exec, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	bracket, err := s.bracketRepo.GetByID(ctx, exec, match.BracketID)
	if err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.GetByID(ctx, exec, bracket.CategoryID)
	if err != nil {
		return nil, err
	}
	return &matchContext{match: match, bracket: bracket, category: category}, nil
}

// mutate runs one transactional match operation: lock the row, apply the
// transition, persist, propagate if terminal, and record the domain
// event. The transition and its downstream writes commit atomically.
func (s *matchService) mutate(ctx context.Context, matchID int, submittedBy *string, apply func(*matchContext) (correction bool, err error)) (*MatchResult, error) {
	result := &MatchResult{}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		mc, txErr := s.lockMatch(ctx, exec, matchID)
		if txErr != nil {
			return txErr
		}

		correction, txErr := apply(mc)
		if txErr != nil {
			return txErr
		}

		if txErr = s.matchRepo.UpdateState(ctx, exec, mc.match); txErr != nil {
			return txErr
		}

		if mc.match.Status.IsTerminal() {
			propagated, propErr := s.resolver.propagate(ctx, exec, mc.bracket, mc.category.Format, mc.match, correction)
			if propErr != nil {
				return propErr
			}
			result.Propagated = propagated

			event := &models.MatchEvent{
				ID:          uuid.NewString(),
				Type:        eventTypeFor(mc.match.Status),
				BracketID:   mc.bracket.ID,
				MatchID:     &mc.match.ID,
				WinnerRef:   mc.match.WinnerRef,
				LoserRef:    mc.match.LoserRef,
				Propagated:  propagated,
				SubmittedBy: submittedBy,
				OccurredAt:  time.Now().UTC(),
			}
			if txErr = s.eventRepo.Create(ctx, exec, event); txErr != nil {
				return txErr
			}
			result.Event = event
		}

		result.Match = mc.match
		return nil
	})
	if err != nil {
		return nil, err
	}

	room := events.BracketRoom(result.Match.BracketID)
	if result.Event != nil {
		s.hub.BroadcastToRoom(room, events.Message{Type: string(result.Event.Type), Payload: result})
		s.bracketSvc.PublishSnapshot(ctx, result.Match.BracketID)
	} else {
		s.hub.BroadcastToRoom(room, events.Message{Type: events.TypeMatchUpdated, Payload: result.Match})
	}

	return result, nil
}

func (s *matchService) SubmitScore(ctx context.Context, matchID int, score models.Score, submittedBy string, correction bool) (*MatchResult, error) {
	return s.mutate(ctx, matchID, &submittedBy, func(mc *matchContext) (bool, error) {
		if correction {
			return true, applyCorrection(mc.match, mc.category.Format, score)
		}
		if mc.match.Status == models.MatchStatusCompleted {
			return false, ErrMatchAlreadyCompleted
		}
		return false, applyScore(mc.match, mc.category.Format, score)
	})
}

func (s *matchService) StartMatch(ctx context.Context, matchID int) (*MatchResult, error) {
	return s.mutate(ctx, matchID, nil, func(mc *matchContext) (bool, error) {
		return false, startMatch(mc.match)
	})
}

func (s *matchService) Forfeit(ctx context.Context, matchID int, side ForfeitSide, reason, submittedBy string) (*MatchResult, error) {
	return s.mutate(ctx, matchID, &submittedBy, func(mc *matchContext) (bool, error) {
		return false, applyForfeit(mc.match, side, reason)
	})
}

func (s *matchService) Postpone(ctx context.Context, matchID int) (*MatchResult, error) {
	return s.mutate(ctx, matchID, nil, func(mc *matchContext) (bool, error) {
		return false, applyPostpone(mc.match)
	})
}

func (s *matchService) Reschedule(ctx context.Context, matchID int, newTime time.Time, courtID *string) (*MatchResult, error) {
	result := &MatchResult{}
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		mc, txErr := s.lockMatch(ctx, exec, matchID)
		if txErr != nil {
			return txErr
		}
		if txErr = applyReschedule(mc.match, newTime); txErr != nil {
			return txErr
		}
		if courtID != nil {
			mc.match.CourtID = courtID
		}
		if txErr = s.matchRepo.UpdateSchedule(ctx, exec, mc.match.ID, mc.match.ScheduledAt, mc.match.CourtID, mc.match.Status); txErr != nil {
			return txErr
		}
		result.Match = mc.match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToRoom(events.BracketRoom(result.Match.BracketID), events.Message{
		Type:    events.TypeMatchUpdated,
		Payload: result.Match,
	})
	return result, nil
}

func (s *matchService) Cancel(ctx context.Context, matchID int, submittedBy string) (*MatchResult, error) {
	result, err := s.mutate(ctx, matchID, &submittedBy, func(mc *matchContext) (bool, error) {
		return false, applyCancel(mc.match)
	})
	if err != nil {
		return nil, err
	}
	if !result.Match.IsFinal {
		// The engine reports this state but does not repair the bracket.
		s.logger.Warn("non-final match canceled in an active bracket",
			slog.Int("match_id", result.Match.ID),
			slog.Int("bracket_id", result.Match.BracketID))
	}
	return result, nil
}

func (s *matchService) ResolveSlot(ctx context.Context, matchID, slot int, ref models.ParticipantRef) (*MatchResult, error) {
	if slot != models.SlotA && slot != models.SlotB {
		return nil, ErrInvalidSlot
	}
	if !ref.IsReal() {
		return nil, ErrValidationFailed
	}

	result := &MatchResult{}
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		mc, txErr := s.lockMatch(ctx, exec, matchID)
		if txErr != nil {
			return txErr
		}
		if mc.match.Status != models.MatchStatusScheduled {
			return ErrMatchTerminal
		}
		current := mc.match.Slot(slot)
		if current == nil || *current != models.WalkoverRef {
			return ErrSlotNotResolvable
		}
		if txErr = s.matchRepo.FillSlot(ctx, exec, matchID, slot, ref, true); txErr != nil {
			return txErr
		}
		mc.match.SetSlot(slot, ref)
		result.Match = mc.match
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToRoom(events.BracketRoom(result.Match.BracketID), events.Message{
		Type:    events.TypeMatchUpdated,
		Payload: result.Match,
	})
	return result, nil
}

func eventTypeFor(status models.MatchStatus) models.MatchEventType {
	switch status {
	case models.MatchStatusForfeited:
		return models.EventMatchForfeited
	case models.MatchStatusNoContest:
		return models.EventMatchNoContest
	case models.MatchStatusCanceled:
		return models.EventMatchCanceled
	default:
		return models.EventMatchCompleted
	}
}
