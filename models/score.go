package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SetScore holds the points won by each side in one game/set.
type SetScore struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Score is the typed score payload of a match: one entry per played set.
// It replaces the free-form JSON score fields of earlier schema versions.
type Score struct {
	Sets []SetScore `json:"sets"`
}

// Value implements driver.Valuer so the score is stored as jsonb.
func (s Score) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *Score) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("unsupported type %T for Score", src)
	}
}

// WinnerSlot validates the score against the category format and returns
// the winning slot (SlotA or SlotB). The set sequence must be a complete,
// minimal match: every set satisfies the game win condition, the winner
// reaches exactly the games-to-win threshold, and no sets follow the
// deciding one.
func (s Score) WinnerSlot(format CategoryFormat) (int, error) {
	if len(s.Sets) == 0 {
		return 0, fmt.Errorf("score has no sets")
	}
	if len(s.Sets) > format.Match.BestOf {
		return 0, fmt.Errorf("score has %d sets, best-of-%d allows at most %d", len(s.Sets), format.Match.BestOf, format.Match.BestOf)
	}

	needed := format.GamesToWin()
	var winsA, winsB int
	for i, set := range s.Sets {
		if winsA == needed || winsB == needed {
			return 0, fmt.Errorf("set %d recorded after the match was already decided", i+1)
		}
		side, err := gameWinner(set, format.Scoring)
		if err != nil {
			return 0, fmt.Errorf("set %d: %w", i+1, err)
		}
		if side == SlotA {
			winsA++
		} else {
			winsB++
		}
	}

	switch {
	case winsA == needed:
		return SlotA, nil
	case winsB == needed:
		return SlotB, nil
	default:
		return 0, fmt.Errorf("no side reached %d won sets (%d-%d)", needed, winsA, winsB)
	}
}

// gameWinner checks one set against the scoring format. With win_by > 1
// the game extends past points_to only until the margin is reached, so an
// extended game must end with exactly that margin. With win_by = 1 (timed
// formats) the game ends the moment points_to is reached.
func gameWinner(set SetScore, scoring ScoringFormat) (int, error) {
	if set.A < 0 || set.B < 0 {
		return 0, fmt.Errorf("negative points %d-%d", set.A, set.B)
	}
	if set.A == set.B {
		return 0, fmt.Errorf("set cannot end in a tie %d-%d", set.A, set.B)
	}

	high, low := set.A, set.B
	side := SlotA
	if set.B > set.A {
		high, low = set.B, set.A
		side = SlotB
	}

	if high < scoring.PointsTo {
		return 0, fmt.Errorf("winning side has %d points, needs at least %d", high, scoring.PointsTo)
	}
	if high-low < scoring.WinBy {
		return 0, fmt.Errorf("margin %d is below the required %d", high-low, scoring.WinBy)
	}
	if high > scoring.PointsTo && high-low != scoring.WinBy {
		return 0, fmt.Errorf("extended game must end with a margin of exactly %d, got %d-%d", scoring.WinBy, high, low)
	}
	return side, nil
}
