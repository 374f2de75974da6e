package models

import "time"

type BracketStatus string

const (
	BracketStatusActive    BracketStatus = "active"
	BracketStatusCompleted BracketStatus = "completed"
)

// Bracket is the persisted root of one category's match tree. Size is the
// full bracket size including byes (a power of two for elimination kinds,
// the participant count for round robin).
type Bracket struct {
	ID         int           `json:"id"`
	CategoryID int           `json:"category_id"`
	Kind       BracketKind   `json:"kind"`
	Size       int           `json:"size"`
	Status     BracketStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
}
