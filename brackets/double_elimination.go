package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/shuttlehq/federation-system/models"
)

type DoubleEliminationGenerator struct{}

func NewDoubleEliminationGenerator() BracketGenerator {
	return &DoubleEliminationGenerator{}
}

func (g *DoubleEliminationGenerator) Kind() models.BracketKind {
	return models.BracketDoubleElimination
}

// GenerateBracket lays out a winner's bracket identical to single
// elimination plus a loser's bracket and a single grand final, 2S-2
// matches in total.
//
// Drop-down table: losers of winner's round 1 fill both slots of loser's
// round 1; losers of winner's round k (k >= 2) fill slot B of loser's
// round 2(k-1), with positions reversed on even k so early rematches are
// pushed as late as possible. Loser's odd rounds >= 3 pair the survivors
// of the previous loser's round. Every loser's-bracket slot therefore has
// exactly one source.
func (g *DoubleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateParams) ([]*BracketMatch, error) {
	n := len(params.Seeds)
	if n == 0 {
		return nil, nil
	}
	if n < 2 {
		return nil, errors.New("double elimination requires at least 2 participants")
	}

	size := BracketSize(n)
	winnersRounds := 0
	for s := size; s > 1; s >>= 1 {
		winnersRounds++
	}

	matches := make([]*BracketMatch, 0, 2*size-2)

	// Winner's bracket.
	order := seedOrder(size)
	for pos := 1; pos <= size/2; pos++ {
		matches = append(matches, &BracketMatch{
			UID:      deUID(models.SideWinners, 1, pos),
			Side:     models.SideWinners,
			Round:    1,
			Position: pos,
			SlotA:    refPtr(seedSlot(params.Seeds, order[2*pos-2])),
			SlotB:    refPtr(seedSlot(params.Seeds, order[2*pos-1])),
		})
	}
	for r := 2; r <= winnersRounds; r++ {
		inRound := size >> uint(r)
		for pos := 1; pos <= inRound; pos++ {
			matches = append(matches, &BracketMatch{
				UID:              deUID(models.SideWinners, r, pos),
				Side:             models.SideWinners,
				Round:            r,
				Position:         pos,
				WinnerSourceAUID: strPtr(deUID(models.SideWinners, r-1, 2*pos-1)),
				WinnerSourceBUID: strPtr(deUID(models.SideWinners, r-1, 2*pos)),
			})
		}
	}

	// Loser's bracket, rounds 1..2(winnersRounds-1).
	losersRounds := 2 * (winnersRounds - 1)
	for lr := 1; lr <= losersRounds; lr++ {
		inRound := losersRoundSize(size, lr)
		for pos := 1; pos <= inRound; pos++ {
			bm := &BracketMatch{
				UID:      deUID(models.SideLosers, lr, pos),
				Side:     models.SideLosers,
				Round:    lr,
				Position: pos,
			}
			switch {
			case lr == 1:
				bm.LoserSourceAUID = strPtr(deUID(models.SideWinners, 1, 2*pos-1))
				bm.LoserSourceBUID = strPtr(deUID(models.SideWinners, 1, 2*pos))
			case lr%2 == 0:
				// Drop round: survivors of the previous loser's round
				// meet the losers of winner's round lr/2+1.
				k := lr/2 + 1
				dropPos := pos
				if k%2 == 0 {
					dropPos = inRound + 1 - pos
				}
				bm.WinnerSourceAUID = strPtr(deUID(models.SideLosers, lr-1, pos))
				bm.LoserSourceBUID = strPtr(deUID(models.SideWinners, k, dropPos))
			default:
				bm.WinnerSourceAUID = strPtr(deUID(models.SideLosers, lr-1, 2*pos-1))
				bm.WinnerSourceBUID = strPtr(deUID(models.SideLosers, lr-1, 2*pos))
			}
			matches = append(matches, bm)
		}
	}

	// Grand final: winner's champion meets the loser's bracket survivor.
	// A two-entrant field has no loser's bracket, so the loser of the
	// only winner's match drops straight into the grand final.
	grandFinal := &BracketMatch{
		UID:              "GF",
		Side:             models.SideWinners,
		Round:            winnersRounds + 1,
		Position:         1,
		WinnerSourceAUID: strPtr(deUID(models.SideWinners, winnersRounds, 1)),
		IsFinal:          true,
	}
	if losersRounds == 0 {
		grandFinal.LoserSourceBUID = strPtr(deUID(models.SideWinners, winnersRounds, 1))
	} else {
		grandFinal.WinnerSourceBUID = strPtr(deUID(models.SideLosers, losersRounds, 1))
	}
	matches = append(matches, grandFinal)

	return matches, nil
}

// losersRoundSize returns the match count of one loser's-bracket round:
// rounds 2k-1 and 2k both hold size/2^(k+1) matches.
func losersRoundSize(size, lr int) int {
	k := (lr + 1) / 2
	return size >> uint(k+1)
}

func deUID(side models.BracketSide, round, pos int) string {
	prefix := "W"
	if side == models.SideLosers {
		prefix = "L"
	}
	return fmt.Sprintf("%s-R%dM%d", prefix, round, pos)
}
