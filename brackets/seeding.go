package brackets

import "github.com/shuttlehq/federation-system/models"

// seedOrder returns the seed ranks (1-based) laid out in bracket slot
// order for a bracket of the given size (a power of two). Adjacent pairs
// form the round-1 matches: seed 1 meets the lowest remaining seed, and
// the halves are split so the top seeds cannot collide before the late
// rounds. The expansion is deterministic, which makes repeated builds of
// the same seed list structurally identical.
//
// size 8 yields [1 8 4 5 2 7 3 6]: (1v8) (4v5) (2v7) (3v6).
func seedOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		doubled := len(order) * 2
		next := make([]int, 0, doubled)
		for _, seed := range order {
			next = append(next, seed, doubled+1-seed)
		}
		order = next
	}
	return order
}

// seedSlot resolves a seed rank to a participant, or the bye sentinel
// when the rank exceeds the field. Because the two ranks of a round-1
// pair always sum to size+1, byes land against the highest seeds and two
// byes can never meet in one round-1 match.
func seedSlot(seeds []models.ParticipantRef, rank int) models.ParticipantRef {
	if rank <= len(seeds) {
		return seeds[rank-1]
	}
	return models.ByeRef
}
