package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shuttlehq/federation-system/models"
	"github.com/shuttlehq/federation-system/repositories"
)

type CategoryService interface {
	CreateCategory(ctx context.Context, tournamentID int, name string, format models.CategoryFormat) (*models.Category, error)
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Category, error)
}

type categoryService struct {
	tx           repositories.TxRunner
	categoryRepo repositories.CategoryRepository
	logger       *slog.Logger
}

func NewCategoryService(tx repositories.TxRunner, categoryRepo repositories.CategoryRepository, logger *slog.Logger) CategoryService {
	return &categoryService{tx: tx, categoryRepo: categoryRepo, logger: logger}
}

func (s *categoryService) CreateCategory(ctx context.Context, tournamentID int, name string, format models.CategoryFormat) (*models.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidationFailed)
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}

	category := &models.Category{
		TournamentID: tournamentID,
		Name:         name,
		Format:       format,
	}
	if err := s.categoryRepo.Create(ctx, s.tx.Executor(), category); err != nil {
		if errors.Is(err, repositories.ErrCategoryTournamentInvalid) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	s.logger.Info("category created",
		slog.Int("category_id", category.ID),
		slog.Int("tournament_id", tournamentID),
		slog.String("kind", string(format.BracketKind)))
	return category, nil
}

func (s *categoryService) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, s.tx.Executor(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *categoryService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Category, error) {
	return s.categoryRepo.ListByTournament(ctx, s.tx.Executor(), tournamentID)
}
