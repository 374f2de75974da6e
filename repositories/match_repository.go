package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shuttlehq/federation-system/models"
)

var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchSlotOccupied   = errors.New("match slot already filled")
	ErrMatchBracketInvalid = errors.New("match references an unknown bracket")
	ErrMatchPositionTaken  = errors.New("match position already taken in this round")
)

const matchColumns = `
	id, bracket_id, side, round, position, slot_a, slot_b, court_id,
	scheduled_at, status, score, winner_ref, loser_ref, forfeit_reason,
	winner_next_match_id, winner_next_slot, loser_next_match_id, loser_next_slot,
	is_final, is_semifinal, is_third_place, verified, created_at, updated_at`

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetForUpdate locks the match row for the duration of the enclosing
	// transaction, serializing all operations on the same match.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.Match, error)
	UpdateNextPointers(ctx context.Context, exec SQLExecutor, id int, winnerNext, winnerSlot, loserNext, loserSlot *int) error
	UpdateState(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateSchedule(ctx context.Context, exec SQLExecutor, id int, scheduledAt *time.Time, courtID *string, status models.MatchStatus) error
	// FillSlot writes a participant into one slot. Without overwrite the
	// write only succeeds while the slot is empty (compare-and-swap on
	// "slot currently empty"), which makes propagation at-most-once even
	// under concurrent upstream completions.
	FillSlot(ctx context.Context, exec SQLExecutor, id, slot int, ref models.ParticipantRef, overwrite bool) error
}

type postgresMatchRepository struct{}

func NewPostgresMatchRepository() MatchRepository {
	return &postgresMatchRepository{}
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(bracket_id, side, round, position, slot_a, slot_b, court_id,
			 scheduled_at, status, score, winner_ref, loser_ref, forfeit_reason,
			 winner_next_match_id, winner_next_slot, loser_next_match_id, loser_next_slot,
			 is_final, is_semifinal, is_third_place, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at, updated_at`

	err := exec.QueryRowContext(ctx, query,
		match.BracketID,
		match.Side,
		match.Round,
		match.Position,
		refToNull(match.SlotA),
		refToNull(match.SlotB),
		match.CourtID,
		match.ScheduledAt,
		match.Status,
		scoreToNull(match.Score),
		refToNull(match.WinnerRef),
		refToNull(match.LoserRef),
		match.ForfeitReason,
		match.WinnerNextMatchID,
		match.WinnerNextSlot,
		match.LoserNextMatchID,
		match.LoserNextSlot,
		match.IsFinal,
		match.IsSemifinal,
		match.IsThirdPlace,
		match.Verified,
	).Scan(&match.ID, &match.CreatedAt, &match.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Constraint {
			case "matches_bracket_id_fkey":
				return ErrMatchBracketInvalid
			case "matches_bracket_side_round_position_key":
				return ErrMatchPositionTaken
			}
		}
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatchRow(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresMatchRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return scanMatchRow(exec.QueryRowContext(ctx, query, id), id)
}

func (r *postgresMatchRepository) ListByBracket(ctx context.Context, exec SQLExecutor, bracketID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE bracket_id = $1
		ORDER BY side ASC, round ASC, position ASC`

	rows, err := exec.QueryContext(ctx, query, bracketID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for bracket %d: %w", bracketID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateNextPointers(ctx context.Context, exec SQLExecutor, id int, winnerNext, winnerSlot, loserNext, loserSlot *int) error {
	query := `
		UPDATE matches
		SET winner_next_match_id = $1, winner_next_slot = $2,
		    loser_next_match_id = $3, loser_next_slot = $4,
		    updated_at = now()
		WHERE id = $5`

	result, err := exec.ExecContext(ctx, query, winnerNext, winnerSlot, loserNext, loserSlot, id)
	if err != nil {
		return fmt.Errorf("failed to update next pointers for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateState(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches
		SET status = $1, score = $2, winner_ref = $3, loser_ref = $4,
		    forfeit_reason = $5, verified = $6, updated_at = now()
		WHERE id = $7`

	result, err := exec.ExecContext(ctx, query,
		match.Status,
		scoreToNull(match.Score),
		refToNull(match.WinnerRef),
		refToNull(match.LoserRef),
		match.ForfeitReason,
		match.Verified,
		match.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update state of match %d: %w", match.ID, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateSchedule(ctx context.Context, exec SQLExecutor, id int, scheduledAt *time.Time, courtID *string, status models.MatchStatus) error {
	query := `
		UPDATE matches
		SET scheduled_at = $1, court_id = $2, status = $3, updated_at = now()
		WHERE id = $4`

	result, err := exec.ExecContext(ctx, query, scheduledAt, courtID, status, id)
	if err != nil {
		return fmt.Errorf("failed to update schedule of match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) FillSlot(ctx context.Context, exec SQLExecutor, id, slot int, ref models.ParticipantRef, overwrite bool) error {
	column := "slot_a"
	if slot == models.SlotB {
		column = "slot_b"
	}

	query := `UPDATE matches SET ` + column + ` = $1, updated_at = now() WHERE id = $2`
	if !overwrite {
		query += ` AND ` + column + ` IS NULL`
	}

	result, err := exec.ExecContext(ctx, query, string(ref), id)
	if err != nil {
		return fmt.Errorf("failed to fill slot %d of match %d: %w", slot, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		if overwrite {
			return ErrMatchNotFound
		}
		return ErrMatchSlotOccupied
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatchRow(row *sql.Row, id int) (*models.Match, error) {
	match, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return match, nil
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		match    models.Match
		slotA    sql.NullString
		slotB    sql.NullString
		winner   sql.NullString
		loser    sql.NullString
		rawScore []byte
	)

	err := row.Scan(
		&match.ID,
		&match.BracketID,
		&match.Side,
		&match.Round,
		&match.Position,
		&slotA,
		&slotB,
		&match.CourtID,
		&match.ScheduledAt,
		&match.Status,
		&rawScore,
		&winner,
		&loser,
		&match.ForfeitReason,
		&match.WinnerNextMatchID,
		&match.WinnerNextSlot,
		&match.LoserNextMatchID,
		&match.LoserNextSlot,
		&match.IsFinal,
		&match.IsSemifinal,
		&match.IsThirdPlace,
		&match.Verified,
		&match.CreatedAt,
		&match.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	match.SlotA = nullToRef(slotA)
	match.SlotB = nullToRef(slotB)
	match.WinnerRef = nullToRef(winner)
	match.LoserRef = nullToRef(loser)

	if rawScore != nil {
		var score models.Score
		if err := json.Unmarshal(rawScore, &score); err != nil {
			return nil, fmt.Errorf("failed to decode score of match %d: %w", match.ID, err)
		}
		match.Score = &score
	}
	return &match, nil
}

func refToNull(ref *models.ParticipantRef) sql.NullString {
	if ref == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*ref), Valid: true}
}

func nullToRef(ns sql.NullString) *models.ParticipantRef {
	if !ns.Valid {
		return nil
	}
	ref := models.ParticipantRef(ns.String)
	return &ref
}

func scoreToNull(score *models.Score) interface{} {
	if score == nil {
		return nil
	}
	return *score
}
