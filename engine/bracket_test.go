package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-arena-system/models"
)

func entrants(n int) []models.Participant {
	ps := make([]models.Participant, n)
	for i := range ps {
		ps[i] = models.Participant{AgentID: fmt.Sprintf("agent-%d", i)}
	}
	return ps
}

func TestSingleEliminationRoundCount(t *testing.T) {
	for n := 2; n <= 33; n++ {
		b, err := BuildBracket(entrants(n), models.FormatSingleElimination)
		require.NoError(t, err, "n=%d", n)
		want := int(math.Ceil(math.Log2(float64(n))))
		assert.Len(t, b.Rounds, want, "n=%d", n)
		final := b.Rounds[len(b.Rounds)-1]
		assert.True(t, final.IsFinal, "n=%d", n)
		assert.Len(t, final.Matches, 1, "n=%d", n)
		for _, round := range b.Rounds[:len(b.Rounds)-1] {
			assert.False(t, round.IsFinal, "n=%d", n)
		}
	}
}

func TestSingleEliminationSeedPairing(t *testing.T) {
	b, err := BuildBracket(entrants(4), models.FormatSingleElimination)
	require.NoError(t, err)
	require.Len(t, b.Rounds, 2)

	first := b.Rounds[0]
	require.Len(t, first.Matches, 2)
	assert.Equal(t, "agent-0", first.Matches[0].Participant1.AgentID)
	assert.Equal(t, "agent-1", first.Matches[0].Participant2.AgentID)
	assert.Equal(t, "agent-2", first.Matches[1].Participant1.AgentID)
	assert.Equal(t, "agent-3", first.Matches[1].Participant2.AgentID)

	// Final slots are placeholders until round one resolves.
	assert.Nil(t, b.Rounds[1].Matches[0].Participant1)
	assert.Nil(t, b.Rounds[1].Matches[0].Participant2)
}

func TestSingleEliminationOddCountBye(t *testing.T) {
	b, err := BuildBracket(entrants(5), models.FormatSingleElimination)
	require.NoError(t, err)
	require.Len(t, b.Rounds, 3)

	// Round one pairs four entrants; the fifth advances without playing.
	require.Len(t, b.Rounds[0].Matches, 2)
	require.Len(t, b.Rounds[1].Matches, 1)

	// The bye sits in round three: round two produces one winner and the bye
	// carries past it into the final's second slot.
	final := b.Rounds[2].Matches[0]
	require.NotNil(t, final.Participant2)
	assert.Equal(t, "agent-4", final.Participant2.AgentID)
}

func TestSingleParticipantInstantWinner(t *testing.T) {
	b, err := BuildBracket(entrants(1), models.FormatSingleElimination)
	require.NoError(t, err)
	assert.Empty(t, b.Rounds)
	require.NotNil(t, b.InstantWinner)
	assert.Equal(t, "agent-0", b.InstantWinner.AgentID)
}

func TestRoundRobinAllPairs(t *testing.T) {
	b, err := BuildBracket(entrants(5), models.FormatRoundRobin)
	require.NoError(t, err)
	require.Len(t, b.Rounds, 1)
	assert.True(t, b.Rounds[0].IsFinal)
	require.Len(t, b.Rounds[0].Matches, 10) // C(5,2)

	seen := map[string]bool{}
	for _, m := range b.Rounds[0].Matches {
		require.NotNil(t, m.Participant1)
		require.NotNil(t, m.Participant2)
		assert.NotEqual(t, m.Participant1.AgentID, m.Participant2.AgentID)
		key := m.Participant1.AgentID + "|" + m.Participant2.AgentID
		assert.False(t, seen[key], "duplicate pairing %s", key)
		seen[key] = true
	}

	_, err = BuildBracket(entrants(1), models.FormatRoundRobin)
	assert.Error(t, err)
}

func TestGauntletSteps(t *testing.T) {
	b, err := BuildBracket(entrants(1), models.FormatGauntlet)
	require.NoError(t, err)
	require.Len(t, b.Rounds, 1)
	require.Len(t, b.Rounds[0].Matches, len(models.GauntletDifficulties))
	for i, m := range b.Rounds[0].Matches {
		assert.Equal(t, models.GauntletDifficulties[i], m.Difficulty)
		assert.Equal(t, "agent-0", m.Participant1.AgentID)
		assert.Nil(t, m.Participant2)
	}

	_, err = BuildBracket(entrants(2), models.FormatGauntlet)
	var ife *InvalidFormatError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, 2, ife.Got)
}

func TestTeamBattlePairing(t *testing.T) {
	b, err := BuildBracket(entrants(8), models.FormatTeamBattle)
	require.NoError(t, err)
	assert.Equal(t, models.FormatTeamBattle, b.Format)
	require.Len(t, b.Rounds, 2) // four teams, two rounds

	first := b.Rounds[0].Matches[0].Participant1
	require.NotNil(t, first)
	assert.Equal(t, []string{"agent-0", "agent-1"}, first.TeamMembers)

	_, err = BuildBracket(entrants(5), models.FormatTeamBattle)
	assert.Error(t, err, "odd entrant count must be rejected")
	_, err = BuildBracket(entrants(2), models.FormatTeamBattle)
	assert.Error(t, err, "below the four entrant floor")
}
