package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shuttlehq/federation-system/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, exec SQLExecutor, limit, offset int) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
}

type postgresTournamentRepository struct{}

func NewPostgresTournamentRepository() TournamentRepository {
	return &postgresTournamentRepository{}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, status)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query, tournament.Name, tournament.Status).
		Scan(&tournament.ID, &tournament.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "tournaments_name_key" {
			return ErrTournamentNameConflict
		}
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `
		SELECT id, name, status, created_at
		FROM tournaments
		WHERE id = $1`

	tournament := &models.Tournament{}
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&tournament.ID,
		&tournament.Name,
		&tournament.Status,
		&tournament.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, exec SQLExecutor, limit, offset int) ([]*models.Tournament, error) {
	query := `
		SELECT id, name, status, created_at
		FROM tournaments
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := exec.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		var tournament models.Tournament
		if scanErr := rows.Scan(
			&tournament.ID,
			&tournament.Name,
			&tournament.Status,
			&tournament.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, &tournament)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
