package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shuttlehq/federation-system/events"
	"github.com/shuttlehq/federation-system/models"
	"github.com/shuttlehq/federation-system/repositories"
)

// fakeTxRunner serializes transactions with a mutex, which mirrors the
// per-match row locking of the real database closely enough for service
// tests: two concurrent operations never interleave inside a transaction.
type fakeTxRunner struct{ mu sync.Mutex }

func (r *fakeTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(nil)
}

func (r *fakeTxRunner) Executor() repositories.SQLExecutor { return nil }

type memMatchRepo struct {
	mu      sync.Mutex
	nextID  int
	matches map[int]*models.Match
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *memMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	match.ID = r.nextID
	match.CreatedAt = time.Now()
	match.UpdatedAt = match.CreatedAt
	stored := *match
	r.matches[match.ID] = &stored
	return nil
}

func (r *memMatchRepo) get(id int) (*models.Match, error) {
	stored, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *memMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *memMatchRepo) GetForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *memMatchRepo) ListByBracket(ctx context.Context, exec repositories.SQLExecutor, bracketID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, stored := range r.matches {
		if stored.BracketID == bracketID {
			copied := *stored
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Side != out[j].Side {
			return out[i].Side < out[j].Side
		}
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r *memMatchRepo) UpdateNextPointers(ctx context.Context, exec repositories.SQLExecutor, id int, winnerNext, winnerSlot, loserNext, loserSlot *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.WinnerNextMatchID = winnerNext
	stored.WinnerNextSlot = winnerSlot
	stored.LoserNextMatchID = loserNext
	stored.LoserNextSlot = loserSlot
	return nil
}

func (r *memMatchRepo) UpdateState(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[match.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.Status = match.Status
	stored.Score = match.Score
	stored.WinnerRef = match.WinnerRef
	stored.LoserRef = match.LoserRef
	stored.ForfeitReason = match.ForfeitReason
	stored.Verified = match.Verified
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *memMatchRepo) UpdateSchedule(ctx context.Context, exec repositories.SQLExecutor, id int, scheduledAt *time.Time, courtID *string, status models.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	stored.ScheduledAt = scheduledAt
	stored.CourtID = courtID
	stored.Status = status
	return nil
}

func (r *memMatchRepo) FillSlot(ctx context.Context, exec repositories.SQLExecutor, id, slot int, ref models.ParticipantRef, overwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if !overwrite && stored.Slot(slot) != nil {
		return repositories.ErrMatchSlotOccupied
	}
	stored.SetSlot(slot, ref)
	return nil
}

type memBracketRepo struct {
	mu       sync.Mutex
	nextID   int
	brackets map[int]*models.Bracket
}

func newMemBracketRepo() *memBracketRepo {
	return &memBracketRepo{brackets: make(map[int]*models.Bracket)}
}

func (r *memBracketRepo) Create(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.brackets {
		if stored.CategoryID == bracket.CategoryID {
			return repositories.ErrBracketCategoryConflict
		}
	}
	r.nextID++
	bracket.ID = r.nextID
	bracket.CreatedAt = time.Now()
	stored := *bracket
	r.brackets[bracket.ID] = &stored
	return nil
}

func (r *memBracketRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Bracket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.brackets[id]
	if !ok {
		return nil, repositories.ErrBracketNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *memBracketRepo) GetByCategory(ctx context.Context, exec repositories.SQLExecutor, categoryID int) (*models.Bracket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.brackets {
		if stored.CategoryID == categoryID {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, repositories.ErrBracketNotFound
}

func (r *memBracketRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.BracketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.brackets[id]
	if !ok {
		return repositories.ErrBracketNotFound
	}
	stored.Status = status
	return nil
}

type memCategoryRepo struct {
	mu         sync.Mutex
	nextID     int
	categories map[int]*models.Category
}

func newMemCategoryRepo() *memCategoryRepo {
	return &memCategoryRepo{categories: make(map[int]*models.Category)}
}

func (r *memCategoryRepo) Create(ctx context.Context, exec repositories.SQLExecutor, category *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	category.ID = r.nextID
	category.CreatedAt = time.Now()
	stored := *category
	r.categories[category.ID] = &stored
	return nil
}

func (r *memCategoryRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.categories[id]
	if !ok {
		return nil, repositories.ErrCategoryNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *memCategoryRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Category, 0)
	for _, stored := range r.categories {
		if stored.TournamentID == tournamentID {
			copied := *stored
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []*models.MatchEvent
}

func newMemEventRepo() *memEventRepo { return &memEventRepo{} }

func (r *memEventRepo) Create(ctx context.Context, exec repositories.SQLExecutor, event *models.MatchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *event
	r.events = append(r.events, &copied)
	return nil
}

func (r *memEventRepo) ListByBracket(ctx context.Context, exec repositories.SQLExecutor, bracketID int) ([]*models.MatchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.MatchEvent, 0)
	for _, stored := range r.events {
		if stored.BracketID == bracketID {
			copied := *stored
			out = append(out, &copied)
		}
	}
	return out, nil
}

// testEnv wires the services against in-memory repositories.
type testEnv struct {
	matchRepo   *memMatchRepo
	bracketRepo *memBracketRepo
	catRepo     *memCategoryRepo
	eventRepo   *memEventRepo

	bracketSvc BracketService
	matchSvc   MatchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := events.NewHub(logger)
	tx := &fakeTxRunner{}

	env := &testEnv{
		matchRepo:   newMemMatchRepo(),
		bracketRepo: newMemBracketRepo(),
		catRepo:     newMemCategoryRepo(),
		eventRepo:   newMemEventRepo(),
	}
	env.bracketSvc = NewBracketService(tx, env.catRepo, env.bracketRepo, env.matchRepo, env.eventRepo, hub, nil, logger)
	env.matchSvc = NewMatchService(tx, env.matchRepo, env.bracketRepo, env.catRepo, env.eventRepo, hub, env.bracketSvc, logger)
	return env
}

func (e *testEnv) createCategory(t *testing.T, format models.CategoryFormat) int {
	t.Helper()
	category := &models.Category{TournamentID: 1, Name: "Open Singles", Format: format}
	require.NoError(t, e.catRepo.Create(context.Background(), nil, category))
	return category.ID
}

// findMatch locates one match of a bracket by side, round and position.
func (e *testEnv) findMatch(t *testing.T, bracketID int, side models.BracketSide, round, position int) *models.Match {
	t.Helper()
	matches, err := e.matchRepo.ListByBracket(context.Background(), nil, bracketID)
	require.NoError(t, err)
	for _, m := range matches {
		if m.Side == side && m.Round == round && m.Position == position {
			return m
		}
	}
	t.Fatalf("match %s/r%d/p%d not found in bracket %d", side, round, position, bracketID)
	return nil
}

func refs(names ...string) []models.ParticipantRef {
	out := make([]models.ParticipantRef, len(names))
	for i, n := range names {
		out[i] = models.ParticipantRef(n)
	}
	return out
}

func winA() models.Score {
	return models.Score{Sets: []models.SetScore{{A: 11, B: 5}, {A: 11, B: 7}}}
}

func winB() models.Score {
	return models.Score{Sets: []models.SetScore{{A: 5, B: 11}, {A: 7, B: 11}}}
}
