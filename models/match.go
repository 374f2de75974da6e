package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusPostponed  MatchStatus = "postponed"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusForfeited  MatchStatus = "forfeited"
	MatchStatusNoContest  MatchStatus = "no_contest"
	MatchStatusCanceled   MatchStatus = "canceled"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s MatchStatus) IsTerminal() bool {
	switch s {
	case MatchStatusCompleted, MatchStatusForfeited, MatchStatusNoContest, MatchStatusCanceled:
		return true
	}
	return false
}

// BracketSide distinguishes the winner's bracket from the loser's bracket
// in double elimination, and placement matches (third place playoff).
type BracketSide string

const (
	SideWinners   BracketSide = "winners"
	SideLosers    BracketSide = "losers"
	SidePlacement BracketSide = "placement"
)

// Slot indexes for the two participant positions of a match.
const (
	SlotA = 1
	SlotB = 2
)

// Match is the only durable state the engine owns: one row per match,
// wired into the bracket through the winner/loser next pointers.
type Match struct {
	ID        int         `json:"id"`
	BracketID int         `json:"bracket_id"`
	Side      BracketSide `json:"side"`
	Round     int         `json:"round"`
	Position  int         `json:"position"`

	SlotA *ParticipantRef `json:"slot_a,omitempty"`
	SlotB *ParticipantRef `json:"slot_b,omitempty"`

	CourtID     *string    `json:"court_id,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	Status        MatchStatus     `json:"status"`
	Score         *Score          `json:"score,omitempty"`
	WinnerRef     *ParticipantRef `json:"winner_ref,omitempty"`
	LoserRef      *ParticipantRef `json:"loser_ref,omitempty"`
	ForfeitReason *string         `json:"forfeit_reason,omitempty"`

	WinnerNextMatchID *int `json:"winner_next_match_id,omitempty"`
	WinnerNextSlot    *int `json:"winner_next_slot,omitempty"`
	LoserNextMatchID  *int `json:"loser_next_match_id,omitempty"`
	LoserNextSlot     *int `json:"loser_next_slot,omitempty"`

	IsFinal      bool `json:"is_final"`
	IsSemifinal  bool `json:"is_semifinal"`
	IsThirdPlace bool `json:"is_third_place"`
	Verified     bool `json:"verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slot returns the participant in the given slot (SlotA or SlotB).
func (m *Match) Slot(slot int) *ParticipantRef {
	if slot == SlotA {
		return m.SlotA
	}
	return m.SlotB
}

// SetSlot assigns the participant in the given slot.
func (m *Match) SetSlot(slot int, ref ParticipantRef) {
	if slot == SlotA {
		m.SlotA = &ref
	} else {
		m.SlotB = &ref
	}
}

// SlotsResolved reports whether both slots hold real participants, the
// precondition for starting the match.
func (m *Match) SlotsResolved() bool {
	return m.SlotA != nil && m.SlotA.IsReal() && m.SlotB != nil && m.SlotB.IsReal()
}

// SlotsFilled reports whether both slots hold a value, sentinel or not.
func (m *Match) SlotsFilled() bool {
	return m.SlotA != nil && m.SlotB != nil
}

// HasBye reports whether either slot holds the bye sentinel.
func (m *Match) HasBye() bool {
	return (m.SlotA != nil && *m.SlotA == ByeRef) || (m.SlotB != nil && *m.SlotB == ByeRef)
}

// ByeResolution returns the winner and loser of a bye match: the real side
// wins, the bye sentinel loses. When both slots are byes (cascaded byes in
// a loser's bracket) the bye sentinel wins as well, so the cascade keeps
// flowing downstream.
func (m *Match) ByeResolution() (winner, loser ParticipantRef) {
	a, b := *m.SlotA, *m.SlotB
	if a.IsReal() {
		return a, b
	}
	if b.IsReal() {
		return b, a
	}
	return a, b
}
