package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shuttlehq/federation-system/models"
)

type EventRepository interface {
	Create(ctx context.Context, exec SQLExecutor, event *models.MatchEvent) error
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.MatchEvent, error)
}

type postgresEventRepository struct{}

func NewPostgresEventRepository() EventRepository {
	return &postgresEventRepository{}
}

func (r *postgresEventRepository) Create(ctx context.Context, exec SQLExecutor, event *models.MatchEvent) error {
	query := `
		INSERT INTO match_events
			(id, type, bracket_id, match_id, winner_ref, loser_ref, propagated, submitted_by, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := exec.ExecContext(ctx, query,
		event.ID,
		event.Type,
		event.BracketID,
		event.MatchID,
		refToNull(event.WinnerRef),
		refToNull(event.LoserRef),
		event.Propagated,
		event.SubmittedBy,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.MatchEvent, error) {
	query := `
		SELECT id, type, bracket_id, match_id, winner_ref, loser_ref, propagated, submitted_by, occurred_at
		FROM match_events
		WHERE bracket_id = $1
		ORDER BY occurred_at ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for bracket %d: %w", bracketID, err)
	}
	defer rows.Close()

	events := make([]*models.MatchEvent, 0)
	for rows.Next() {
		var (
			event  models.MatchEvent
			winner sql.NullString
			loser  sql.NullString
		)
		if scanErr := rows.Scan(
			&event.ID,
			&event.Type,
			&event.BracketID,
			&event.MatchID,
			&winner,
			&loser,
			&event.Propagated,
			&event.SubmittedBy,
			&event.OccurredAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", scanErr)
		}
		event.WinnerRef = nullToRef(winner)
		event.LoserRef = nullToRef(loser)
		events = append(events, &event)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during event rows iteration: %w", err)
	}
	return events, nil
}
