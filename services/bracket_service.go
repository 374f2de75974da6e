package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shuttlehq/federation-system/brackets"
	"github.com/shuttlehq/federation-system/events"
	"github.com/shuttlehq/federation-system/models"
	"github.com/shuttlehq/federation-system/repositories"
	"github.com/shuttlehq/federation-system/storage"
)

// RoundView groups the matches of one round on one side of the bracket.
type RoundView struct {
	Side    models.BracketSide `json:"side"`
	Round   int                `json:"round"`
	Matches []*models.Match    `json:"matches"`
}

// BracketView is the read-only tree exposed for rendering: the bracket,
// its category format and every match grouped by side and round.
type BracketView struct {
	Bracket  *models.Bracket `json:"bracket"`
	Category *models.Category `json:"category"`
	Rounds   []RoundView     `json:"rounds"`
}

type BracketService interface {
	// BuildBracket generates and persists the full match set for a
	// category at finalization time. It fails when a bracket already
	// exists or fewer than 2 participants are supplied.
	BuildBracket(ctx context.Context, categoryID int, seeds []models.ParticipantRef) (*models.Bracket, error)

	// GetBracketView assembles the current bracket tree. Read-only.
	GetBracketView(ctx context.Context, bracketID int) (*BracketView, error)

	// ListEvents returns the bracket's audit trail in insertion order.
	ListEvents(ctx context.Context, bracketID int) ([]*models.MatchEvent, error)

	// PublishSnapshot renders the bracket view and pushes it to object
	// storage for microsites. A nil publisher makes this a no-op.
	PublishSnapshot(ctx context.Context, bracketID int)
}

type bracketService struct {
	tx           repositories.TxRunner
	categoryRepo repositories.CategoryRepository
	bracketRepo  repositories.BracketRepository
	matchRepo    repositories.MatchRepository
	eventRepo    repositories.EventRepository
	resolver     *progressionResolver
	hub          *events.Hub
	snapshots    storage.SnapshotPublisher
	logger       *slog.Logger
}

func NewBracketService(
	tx repositories.TxRunner,
	categoryRepo repositories.CategoryRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	eventRepo repositories.EventRepository,
	hub *events.Hub,
	snapshots storage.SnapshotPublisher,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		tx:           tx,
		categoryRepo: categoryRepo,
		bracketRepo:  bracketRepo,
		matchRepo:    matchRepo,
		eventRepo:    eventRepo,
		resolver:     newProgressionResolver(matchRepo, bracketRepo, logger),
		hub:          hub,
		snapshots:    snapshots,
		logger:       logger,
	}
}

func (s *bracketService) BuildBracket(ctx context.Context, categoryID int, seeds []models.ParticipantRef) (*models.Bracket, error) {
	category, err := s.categoryRepo.GetByID(ctx, s.tx.Executor(), categoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	if _, err := s.bracketRepo.GetByCategory(ctx, s.tx.Executor(), categoryID); err == nil {
		return nil, ErrBracketAlreadyBuilt
	} else if !errors.Is(err, repositories.ErrBracketNotFound) {
		return nil, err
	}

	if len(seeds) < 2 {
		return nil, ErrInsufficientParticipants
	}
	for _, seed := range seeds {
		if !seed.IsReal() {
			return nil, fmt.Errorf("%w: seed list contains a reserved sentinel value", ErrConfigurationInvalid)
		}
	}
	if err := category.Format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}

	generator := brackets.ForKind(category.Format.BracketKind)
	if generator == nil {
		return nil, fmt.Errorf("%w: unsupported bracket kind %q", ErrConfigurationInvalid, category.Format.BracketKind)
	}

	blueprints, err := generator.GenerateBracket(ctx, brackets.GenerateParams{
		Seeds:  seeds,
		Format: category.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}

	size := brackets.BracketSize(len(seeds))
	if category.Format.BracketKind == models.BracketRoundRobin {
		size = len(seeds)
	}

	bracket := &models.Bracket{
		CategoryID: categoryID,
		Kind:       category.Format.BracketKind,
		Size:       size,
		Status:     models.BracketStatusActive,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.bracketRepo.Create(ctx, exec, bracket); txErr != nil {
			if errors.Is(txErr, repositories.ErrBracketCategoryConflict) {
				return ErrBracketAlreadyBuilt
			}
			return txErr
		}

		// First pass: persist every blueprint as a scheduled match row.
		byUID := make(map[string]*models.Match, len(blueprints))
		created := make([]*models.Match, 0, len(blueprints))
		for _, bm := range blueprints {
			match := &models.Match{
				BracketID:   bracket.ID,
				Side:        bm.Side,
				Round:       bm.Round,
				Position:    bm.Position,
				SlotA:       bm.SlotA,
				SlotB:       bm.SlotB,
				Status:      models.MatchStatusScheduled,
				IsFinal:     bm.IsFinal,
				IsSemifinal: bm.IsSemifinal,
			}
			if txErr := s.matchRepo.Create(ctx, exec, match); txErr != nil {
				return txErr
			}
			byUID[bm.UID] = match
			created = append(created, match)
		}

		// Second pass: turn the blueprints' forward source references
		// into winner/loser next pointers on the stored rows.
		type pointers struct {
			winnerNext, winnerSlot, loserNext, loserSlot *int
		}
		wired := make(map[int]*pointers)
		link := func(sourceUID *string, targetID, slot int, isWinnerSource bool) error {
			if sourceUID == nil {
				return nil
			}
			source, ok := byUID[*sourceUID]
			if !ok {
				return fmt.Errorf("%w: blueprint references unknown match %s", ErrBracketIntegrity, *sourceUID)
			}
			ptrs := wired[source.ID]
			if ptrs == nil {
				ptrs = &pointers{}
				wired[source.ID] = ptrs
			}
			targetCopy, slotCopy := targetID, slot
			if isWinnerSource {
				ptrs.winnerNext, ptrs.winnerSlot = &targetCopy, &slotCopy
				source.WinnerNextMatchID, source.WinnerNextSlot = &targetCopy, &slotCopy
			} else {
				ptrs.loserNext, ptrs.loserSlot = &targetCopy, &slotCopy
				source.LoserNextMatchID, source.LoserNextSlot = &targetCopy, &slotCopy
			}
			return nil
		}
		for _, bm := range blueprints {
			target := byUID[bm.UID]
			if txErr := link(bm.WinnerSourceAUID, target.ID, models.SlotA, true); txErr != nil {
				return txErr
			}
			if txErr := link(bm.WinnerSourceBUID, target.ID, models.SlotB, true); txErr != nil {
				return txErr
			}
			if txErr := link(bm.LoserSourceAUID, target.ID, models.SlotA, false); txErr != nil {
				return txErr
			}
			if txErr := link(bm.LoserSourceBUID, target.ID, models.SlotB, false); txErr != nil {
				return txErr
			}
		}
		for id, ptrs := range wired {
			if txErr := s.matchRepo.UpdateNextPointers(ctx, exec, id, ptrs.winnerNext, ptrs.winnerSlot, ptrs.loserNext, ptrs.loserSlot); txErr != nil {
				return txErr
			}
		}

		// Auto-resolve byes; resolution propagates and may cascade.
		for _, match := range created {
			if match.Status == models.MatchStatusScheduled && match.SlotsFilled() && match.HasBye() {
				if txErr := s.resolver.resolveBye(ctx, exec, bracket, category.Format, match); txErr != nil {
					return txErr
				}
			}
		}

		event := &models.MatchEvent{
			ID:         uuid.NewString(),
			Type:       models.EventBracketCreated,
			BracketID:  bracket.ID,
			OccurredAt: time.Now().UTC(),
		}
		return s.eventRepo.Create(ctx, exec, event)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket built",
		slog.Int("category_id", categoryID),
		slog.Int("bracket_id", bracket.ID),
		slog.String("kind", string(bracket.Kind)),
		slog.Int("participants", len(seeds)),
		slog.Int("matches", len(blueprints)))

	s.hub.BroadcastToRoom(events.BracketRoom(bracket.ID), events.Message{
		Type:    string(models.EventBracketCreated),
		Payload: bracket,
	})
	s.PublishSnapshot(ctx, bracket.ID)

	return bracket, nil
}

func (s *bracketService) GetBracketView(ctx context.Context, bracketID int) (*BracketView, error) {
	bracket, err := s.bracketRepo.GetByID(ctx, s.tx.Executor(), bracketID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}

	view := &BracketView{Bracket: bracket}
	var matches []*models.Match

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		category, gErr := s.categoryRepo.GetByID(gCtx, s.tx.Executor(), bracket.CategoryID)
		if gErr != nil {
			return gErr
		}
		view.Category = category
		return nil
	})
	g.Go(func() error {
		listed, gErr := s.matchRepo.ListByBracket(gCtx, s.tx.Executor(), bracketID)
		if gErr != nil {
			return gErr
		}
		matches = listed
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Rounds = groupRounds(matches)
	return view, nil
}

func (s *bracketService) ListEvents(ctx context.Context, bracketID int) ([]*models.MatchEvent, error) {
	if _, err := s.bracketRepo.GetByID(ctx, s.tx.Executor(), bracketID); err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}
	return s.eventRepo.ListByBracket(ctx, s.tx.Executor(), bracketID)
}

func (s *bracketService) PublishSnapshot(ctx context.Context, bracketID int) {
	if s.snapshots == nil {
		return
	}
	view, err := s.GetBracketView(ctx, bracketID)
	if err != nil {
		s.logger.Error("failed to assemble bracket snapshot", slog.Int("bracket_id", bracketID), slog.Any("error", err))
		return
	}
	body, err := json.Marshal(view)
	if err != nil {
		s.logger.Error("failed to encode bracket snapshot", slog.Int("bracket_id", bracketID), slog.Any("error", err))
		return
	}
	key := fmt.Sprintf("brackets/%d.json", bracketID)
	if _, err := s.snapshots.Publish(ctx, key, "application/json", body); err != nil {
		s.logger.Error("failed to publish bracket snapshot", slog.Int("bracket_id", bracketID), slog.Any("error", err))
		return
	}
	s.logger.Info("bracket snapshot published", slog.Int("bracket_id", bracketID), slog.String("key", key))
}

// groupRounds orders matches into per-side, per-round groups: winner's
// bracket first, then loser's, then placement.
func groupRounds(matches []*models.Match) []RoundView {
	type key struct {
		side  models.BracketSide
		round int
	}
	groups := make(map[key][]*models.Match)
	for _, match := range matches {
		k := key{side: match.Side, round: match.Round}
		groups[k] = append(groups[k], match)
	}

	sideRank := map[models.BracketSide]int{
		models.SideWinners:   0,
		models.SideLosers:    1,
		models.SidePlacement: 2,
	}

	rounds := make([]RoundView, 0, len(groups))
	for k, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].Position < group[j].Position })
		rounds = append(rounds, RoundView{Side: k.side, Round: k.round, Matches: group})
	}
	sort.Slice(rounds, func(i, j int) bool {
		if sideRank[rounds[i].Side] != sideRank[rounds[j].Side] {
			return sideRank[rounds[i].Side] < sideRank[rounds[j].Side]
		}
		return rounds[i].Round < rounds[j].Round
	})
	return rounds
}
