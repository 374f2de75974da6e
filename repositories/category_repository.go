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
	ErrCategoryNotFound          = errors.New("category not found")
	ErrCategoryTournamentInvalid = errors.New("category references an unknown tournament")
)

type CategoryRepository interface {
	Create(ctx context.Context, exec SQLExecutor, category *models.Category) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Category, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Category, error)
}

type postgresCategoryRepository struct{}

func NewPostgresCategoryRepository() CategoryRepository {
	return &postgresCategoryRepository{}
}

func (r *postgresCategoryRepository) Create(ctx context.Context, exec SQLExecutor, category *models.Category) error {
	query := `
		INSERT INTO categories (tournament_id, name, format)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query, category.TournamentID, category.Name, category.Format).
		Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "categories_tournament_id_fkey" {
			return ErrCategoryTournamentInvalid
		}
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (r *postgresCategoryRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Category, error) {
	query := `
		SELECT id, tournament_id, name, format, created_at
		FROM categories
		WHERE id = $1`

	category := &models.Category{}
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.TournamentID,
		&category.Name,
		&category.Format,
		&category.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to scan category %d: %w", id, err)
	}
	return category, nil
}

func (r *postgresCategoryRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Category, error) {
	query := `
		SELECT id, tournament_id, name, format, created_at
		FROM categories
		WHERE tournament_id = $1
		ORDER BY id ASC`

	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	categories := make([]*models.Category, 0)
	for rows.Next() {
		var category models.Category
		if scanErr := rows.Scan(
			&category.ID,
			&category.TournamentID,
			&category.Name,
			&category.Format,
			&category.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", scanErr)
		}
		categories = append(categories, &category)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during category rows iteration: %w", err)
	}
	return categories, nil
}
