package models

import "time"

// TournamentStatus mirrors the status ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusDraft     TournamentStatus = "draft"
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed"
	TournamentStatusCanceled  TournamentStatus = "canceled"
)

type Tournament struct {
	ID        int              `json:"id"`
	Name      string           `json:"name"`
	Status    TournamentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`

	Categories []Category `json:"categories,omitempty"`
}

var tournamentTransitions = map[TournamentStatus][]TournamentStatus{
	TournamentStatusDraft:     {TournamentStatusActive, TournamentStatusCanceled},
	TournamentStatusActive:    {TournamentStatusCompleted, TournamentStatusCanceled},
	TournamentStatusCompleted: {},
	TournamentStatusCanceled:  {},
}

// ValidTournamentTransition reports whether a tournament may move from
// current to next. A status may always "move" to itself.
func ValidTournamentTransition(current, next TournamentStatus) bool {
	if current == next {
		return true
	}
	for _, allowed := range tournamentTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}
