package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/shuttlehq/federation-system/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Kind() models.BracketKind {
	return models.BracketRoundRobin
}

// GenerateBracket schedules every participant against every other exactly
// once, N(N-1)/2 matches, using the circle method: one entrant stays
// fixed while the rest rotate, so no participant plays twice in a round.
// An odd field gets a rotating dummy opponent whose pairings are simply
// skipped. Round robin matches carry no propagation pointers; standings
// are derived from completed results by the reporting layer.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	n := len(params.Seeds)
	if n == 0 {
		return nil, nil
	}
	if n < 2 {
		return nil, errors.New("round robin requires at least 2 participants")
	}

	ring := make([]int, n)
	for i := range ring {
		ring[i] = i
	}
	// Index -1 marks the dummy slot of an odd field.
	if n%2 != 0 {
		ring = append(ring, -1)
	}

	rounds := len(ring) - 1
	half := len(ring) / 2
	matches := make([]*BracketMatch, 0, n*(n-1)/2)

	for r := 1; r <= rounds; r++ {
		pos := 0
		for i := 0; i < half; i++ {
			a, b := ring[i], ring[len(ring)-1-i]
			if a == -1 || b == -1 {
				continue
			}
			pos++
			matches = append(matches, &BracketMatch{
				UID:      fmt.Sprintf("RR-R%dM%d", r, pos),
				Side:     models.SideWinners,
				Round:    r,
				Position: pos,
				SlotA:    refPtr(params.Seeds[a]),
				SlotB:    refPtr(params.Seeds[b]),
			})
		}
		// Rotate everything but the first entrant.
		last := ring[len(ring)-1]
		copy(ring[2:], ring[1:len(ring)-1])
		ring[1] = last
	}

	return matches, nil
}
