package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/shuttlehq/federation-system/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Kind() models.BracketKind {
	return models.BracketSingleElimination
}

// GenerateBracket lays out a full single elimination tree: size/2 round-1
// matches with byes pre-filled, then halving rounds wired through winner
// source references. For S slots it always produces exactly S-1 matches;
// bye matches are real rows that the coordinator auto-resolves.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	n := len(params.Seeds)
	if n == 0 {
		return nil, nil
	}
	if n == 1 {
		// A one-entrant field degenerates to a single walkover final.
		return []*BracketMatch{{
			UID:      seUID(1, 1),
			Side:     models.SideWinners,
			Round:    1,
			Position: 1,
			SlotA:    refPtr(params.Seeds[0]),
			SlotB:    refPtr(models.ByeRef),
			IsFinal:  true,
		}}, nil
	}

	size := BracketSize(n)
	rounds := 0
	for s := size; s > 1; s >>= 1 {
		rounds++
	}

	matches := make([]*BracketMatch, 0, size-1)

	order := seedOrder(size)
	firstRound := size / 2
	for pos := 1; pos <= firstRound; pos++ {
		bm := &BracketMatch{
			UID:      seUID(1, pos),
			Side:     models.SideWinners,
			Round:    1,
			Position: pos,
			SlotA:    refPtr(seedSlot(params.Seeds, order[2*pos-2])),
			SlotB:    refPtr(seedSlot(params.Seeds, order[2*pos-1])),
		}
		if *bm.SlotA == models.ByeRef && *bm.SlotB == models.ByeRef {
			return nil, errors.New("internal error: two byes paired in round 1")
		}
		matches = append(matches, bm)
	}

	for r := 2; r <= rounds; r++ {
		inRound := size >> uint(r)
		for pos := 1; pos <= inRound; pos++ {
			matches = append(matches, &BracketMatch{
				UID:              seUID(r, pos),
				Side:             models.SideWinners,
				Round:            r,
				Position:         pos,
				WinnerSourceAUID: strPtr(seUID(r-1, 2*pos-1)),
				WinnerSourceBUID: strPtr(seUID(r-1, 2*pos)),
			})
		}
	}

	for _, bm := range matches {
		if bm.Round == rounds {
			bm.IsFinal = true
		}
		if rounds >= 2 && bm.Round == rounds-1 {
			bm.IsSemifinal = true
		}
	}

	return matches, nil
}

func seUID(round, pos int) string {
	return fmt.Sprintf("R%dM%d", round, pos)
}
