package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXPForNextLevelGrows(t *testing.T) {
	assert.EqualValues(t, 100, xpForNextLevel(1))
	prev := int64(0)
	for lvl := 1; lvl <= 50; lvl++ {
		need := xpForNextLevel(lvl)
		assert.Greater(t, need, prev, "level %d", lvl)
		prev = need
	}
	// Clamped floor for bogus input.
	assert.Equal(t, xpForNextLevel(1), xpForNextLevel(0))
}

func TestDetermineRank(t *testing.T) {
	cases := map[int]int{
		1:   1,
		9:   1,
		10:  2,
		24:  2,
		25:  3,
		49:  3,
		50:  4,
		99:  4,
		100: 5,
		250: 5,
	}
	for level, want := range cases {
		assert.Equal(t, want, determineRank(level), "level %d", level)
	}
}
