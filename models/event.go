package models

import "time"

// MatchEventType names the domain events emitted on terminal match
// transitions, consumed by the notification subsystem.
type MatchEventType string

const (
	EventBracketCreated MatchEventType = "BRACKET_CREATED"
	EventMatchCompleted MatchEventType = "MATCH_COMPLETED"
	EventMatchForfeited MatchEventType = "MATCH_FORFEITED"
	EventMatchNoContest MatchEventType = "MATCH_NO_CONTEST"
	EventMatchCanceled  MatchEventType = "MATCH_CANCELED"
)

// MatchEvent is the persisted domain event record. Propagated reports
// whether the transition wrote any downstream slot; a canceled non-final
// match in an active bracket shows up here as a terminal event with
// Propagated=false, which operators treat as an administrative error.
type MatchEvent struct {
	ID          string          `json:"id"`
	Type        MatchEventType  `json:"type"`
	BracketID   int             `json:"bracket_id"`
	MatchID     *int            `json:"match_id,omitempty"`
	WinnerRef   *ParticipantRef `json:"winner_ref,omitempty"`
	LoserRef    *ParticipantRef `json:"loser_ref,omitempty"`
	Propagated  bool            `json:"propagated"`
	SubmittedBy *string         `json:"submitted_by,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
