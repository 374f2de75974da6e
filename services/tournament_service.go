package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shuttlehq/federation-system/models"
	"github.com/shuttlehq/federation-system/repositories"
)

type TournamentService interface {
	CreateTournament(ctx context.Context, name string) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, limit, offset int) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error)
}

type tournamentService struct {
	tx             repositories.TxRunner
	tournamentRepo repositories.TournamentRepository
	logger         *slog.Logger
}

func NewTournamentService(tx repositories.TxRunner, tournamentRepo repositories.TournamentRepository, logger *slog.Logger) TournamentService {
	return &tournamentService{tx: tx, tournamentRepo: tournamentRepo, logger: logger}
}

func (s *tournamentService) CreateTournament(ctx context.Context, name string) (*models.Tournament, error) {
	if name == "" {
		return nil, ErrTournamentNameRequired
	}

	tournament := &models.Tournament{
		Name:   name,
		Status: models.TournamentStatusDraft,
	}
	if err := s.tournamentRepo.Create(ctx, s.tx.Executor(), tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, fmt.Errorf("%w: name %q already taken", ErrValidationFailed, name)
		}
		return nil, err
	}

	s.logger.Info("tournament created", slog.Int("tournament_id", tournament.ID), slog.String("name", name))
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, s.tx.Executor(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, limit, offset int) ([]*models.Tournament, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.tournamentRepo.List(ctx, s.tx.Executor(), limit, offset)
}

// UpdateStatus runs inside a transaction so the transition check and the
// write are atomic against concurrent updates.
func (s *tournamentService) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error) {
	var tournament *models.Tournament

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		current, txErr := s.tournamentRepo.GetByID(ctx, exec, id)
		if txErr != nil {
			if errors.Is(txErr, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return txErr
		}

		if !models.ValidTournamentTransition(current.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, current.Status, status)
		}
		if txErr = s.tournamentRepo.UpdateStatus(ctx, exec, id, status); txErr != nil {
			return txErr
		}
		current.Status = status
		tournament = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament status updated", slog.Int("tournament_id", id), slog.String("status", string(status)))
	return tournament, nil
}
