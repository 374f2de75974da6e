package models

// ParticipantRef is an opaque reference to a registered participant,
// issued by the accounts subsystem. For doubles it carries both user ids
// joined by the accounts service; the engine never looks inside it.
type ParticipantRef string

const (
	// ByeRef fills the empty slot of a round-1 match that has no opponent.
	// A match holding a ByeRef auto-resolves to the other side.
	ByeRef ParticipantRef = "BYE"

	// WalkoverRef fills a downstream slot when the upstream match ended
	// with no winner (both sides forfeited). It blocks the downstream
	// match until an administrator resolves the slot.
	WalkoverRef ParticipantRef = "WALKOVER"
)

// IsReal reports whether the reference points to an actual participant
// rather than a bracket sentinel.
func (p ParticipantRef) IsReal() bool {
	return p != "" && p != ByeRef && p != WalkoverRef
}
