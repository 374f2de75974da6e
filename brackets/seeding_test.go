package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuttlehq/federation-system/models"
)

func TestSeedOrder(t *testing.T) {
	assert.Equal(t, []int{1, 2}, seedOrder(2))
	assert.Equal(t, []int{1, 4, 2, 3}, seedOrder(4))
	assert.Equal(t, []int{1, 8, 4, 5, 2, 7, 3, 6}, seedOrder(8))
}

func TestSeedOrderPairsSumToSizePlusOne(t *testing.T) {
	for _, size := range []int{2, 4, 8, 16, 32} {
		order := seedOrder(size)
		require.Len(t, order, size)
		for i := 0; i < size; i += 2 {
			assert.Equal(t, size+1, order[i]+order[i+1],
				"pair (%d, %d) in size %d", order[i], order[i+1], size)
		}
	}
}

func TestSeedOrderContainsEveryRankOnce(t *testing.T) {
	order := seedOrder(16)
	seen := make(map[int]bool)
	for _, rank := range order {
		assert.False(t, seen[rank], "rank %d appears twice", rank)
		seen[rank] = true
	}
	assert.Len(t, seen, 16)
}

func TestSeedSlot(t *testing.T) {
	seeds := []models.ParticipantRef{"p1", "p2", "p3"}

	assert.Equal(t, models.ParticipantRef("p1"), seedSlot(seeds, 1))
	assert.Equal(t, models.ParticipantRef("p3"), seedSlot(seeds, 3))
	assert.Equal(t, models.ByeRef, seedSlot(seeds, 4))
	assert.Equal(t, models.ByeRef, seedSlot(seeds, 8))
}

func TestBracketSize(t *testing.T) {
	assert.Equal(t, 0, BracketSize(0))
	assert.Equal(t, 1, BracketSize(1))
	assert.Equal(t, 2, BracketSize(2))
	assert.Equal(t, 4, BracketSize(3))
	assert.Equal(t, 8, BracketSize(5))
	assert.Equal(t, 8, BracketSize(8))
	assert.Equal(t, 16, BracketSize(9))
}
