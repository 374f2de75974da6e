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
	ErrBracketNotFound         = errors.New("bracket not found")
	ErrBracketCategoryConflict = errors.New("a bracket already exists for this category")
)

type BracketRepository interface {
	Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error)
	GetByCategory(ctx context.Context, exec SQLExecutor, categoryID int) (*models.Bracket, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.BracketStatus) error
}

type postgresBracketRepository struct{}

func NewPostgresBracketRepository() BracketRepository {
	return &postgresBracketRepository{}
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, bracket *models.Bracket) error {
	query := `
		INSERT INTO brackets (category_id, kind, size, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query, bracket.CategoryID, bracket.Kind, bracket.Size, bracket.Status).
		Scan(&bracket.ID, &bracket.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "brackets_category_id_key" {
			return ErrBracketCategoryConflict
		}
		return fmt.Errorf("failed to insert bracket: %w", err)
	}
	return nil
}

func (r *postgresBracketRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Bracket, error) {
	return r.getOne(ctx, exec, `WHERE id = $1`, id)
}

func (r *postgresBracketRepository) GetByCategory(ctx context.Context, exec SQLExecutor, categoryID int) (*models.Bracket, error) {
	return r.getOne(ctx, exec, `WHERE category_id = $1`, categoryID)
}

func (r *postgresBracketRepository) getOne(ctx context.Context, exec SQLExecutor, where string, arg interface{}) (*models.Bracket, error) {
	query := `
		SELECT id, category_id, kind, size, status, created_at
		FROM brackets ` + where

	bracket := &models.Bracket{}
	err := exec.QueryRowContext(ctx, query, arg).Scan(
		&bracket.ID,
		&bracket.CategoryID,
		&bracket.Kind,
		&bracket.Size,
		&bracket.Status,
		&bracket.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to scan bracket: %w", err)
	}
	return bracket, nil
}

func (r *postgresBracketRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.BracketStatus) error {
	query := `UPDATE brackets SET status = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update bracket %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}
