package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BracketKind selects the generator and propagation table for a category.
type BracketKind string

const (
	BracketSingleElimination BracketKind = "single_elimination"
	BracketDoubleElimination BracketKind = "double_elimination"
	BracketRoundRobin        BracketKind = "round_robin"
)

// ScoringFormat describes the win condition of a single game.
// The thresholds are category configuration, never hardcoded in the
// engine: rally point to 11 win-by-2, to 21 win-by-1 for timed play, etc.
type ScoringFormat struct {
	PointsTo int `json:"points_to"`
	WinBy    int `json:"win_by"`
}

// MatchFormat describes how many games decide a match.
type MatchFormat struct {
	BestOf int `json:"best_of"`
}

// CategoryFormat is the full format configuration supplied at bracket
// build time.
type CategoryFormat struct {
	BracketKind       BracketKind   `json:"bracket_kind"`
	Match             MatchFormat   `json:"match_format"`
	Scoring           ScoringFormat `json:"scoring_format"`
	ThirdPlacePlayoff bool          `json:"third_place_playoff"`
}

// GamesToWin returns the number of games a side must take to win a match.
func (f CategoryFormat) GamesToWin() int {
	return f.Match.BestOf/2 + 1
}

func (f CategoryFormat) Validate() error {
	switch f.BracketKind {
	case BracketSingleElimination, BracketDoubleElimination, BracketRoundRobin:
	default:
		return fmt.Errorf("unknown bracket kind %q", f.BracketKind)
	}
	if f.Match.BestOf < 1 || f.Match.BestOf%2 == 0 {
		return fmt.Errorf("best_of must be a positive odd number, got %d", f.Match.BestOf)
	}
	if f.Scoring.PointsTo < 1 {
		return fmt.Errorf("points_to must be positive, got %d", f.Scoring.PointsTo)
	}
	if f.Scoring.WinBy < 1 {
		return fmt.Errorf("win_by must be positive, got %d", f.Scoring.WinBy)
	}
	if f.ThirdPlacePlayoff && f.BracketKind != BracketSingleElimination {
		return fmt.Errorf("third place playoff is only available for single elimination")
	}
	return nil
}

// Value implements driver.Valuer so the format is stored as jsonb.
func (f CategoryFormat) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner.
func (f *CategoryFormat) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("unsupported type %T for CategoryFormat", src)
	}
}

type Category struct {
	ID           int            `json:"id"`
	TournamentID int            `json:"tournament_id"`
	Name         string         `json:"name"`
	Format       CategoryFormat `json:"format"`
	CreatedAt    time.Time      `json:"created_at"`
}
