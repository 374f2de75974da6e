package brackets

import (
	"context"

	"github.com/shuttlehq/federation-system/models"
)

// BracketMatch is the blueprint for one match produced by a generator.
// Source UIDs express the propagation table: the winner (or loser) of the
// referenced upstream match fills the corresponding slot. Persistence
// turns these forward references into winner/loser next pointers on the
// stored rows.
type BracketMatch struct {
	UID      string
	Side     models.BracketSide
	Round    int
	Position int

	SlotA *models.ParticipantRef
	SlotB *models.ParticipantRef

	WinnerSourceAUID *string
	WinnerSourceBUID *string
	LoserSourceAUID  *string
	LoserSourceBUID  *string

	IsFinal     bool
	IsSemifinal bool
}

// GenerateParams carries the seeded participant list (rank 1 first) and
// the category format configuration.
type GenerateParams struct {
	Seeds  []models.ParticipantRef
	Format models.CategoryFormat
}

// BracketGenerator produces the full, immutable match blueprint for one
// bracket kind. Generation is pure: identical params always yield an
// identical blueprint, and no persistence happens here.
type BracketGenerator interface {
	Kind() models.BracketKind
	GenerateBracket(ctx context.Context, params GenerateParams) ([]*BracketMatch, error)
}

// ForKind returns the generator for the given bracket kind, or nil when
// the kind is unknown.
func ForKind(kind models.BracketKind) BracketGenerator {
	switch kind {
	case models.BracketSingleElimination:
		return NewSingleEliminationGenerator()
	case models.BracketDoubleElimination:
		return NewDoubleEliminationGenerator()
	case models.BracketRoundRobin:
		return NewRoundRobinGenerator()
	default:
		return nil
	}
}

// BracketSize returns the next power of two that fits n participants.
func BracketSize(n int) int {
	if n <= 0 {
		return 0
	}
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

func strPtr(s string) *string { return &s }

func refPtr(r models.ParticipantRef) *models.ParticipantRef { return &r }
