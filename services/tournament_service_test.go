package services

import (
	"testing"

	"agent-arena-system/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateFormatCapacity(t *testing.T) {
	cases := []struct {
		format models.TournamentFormat
		max    int
		ok     bool
	}{
		{models.FormatSingleElimination, 2, true},
		{models.FormatSingleElimination, 8, true},
		{models.FormatSingleElimination, 1, false},
		{models.FormatRoundRobin, 5, true},
		{models.FormatRoundRobin, 1, false},
		{models.FormatGauntlet, 1, true},
		{models.FormatGauntlet, 2, false},
		{models.FormatTeamBattle, 4, true},
		{models.FormatTeamBattle, 8, true},
		// An odd cap would let ordinary joins fill the field to a count the
		// bracket builder must reject, stranding the tournament in error.
		{models.FormatTeamBattle, 5, false},
		{models.FormatTeamBattle, 2, false},
	}
	for _, tc := range cases {
		err := validateFormatCapacity(tc.format, tc.max)
		if tc.ok {
			assert.NoError(t, err, "%s max=%d", tc.format, tc.max)
		} else {
			assert.Error(t, err, "%s max=%d", tc.format, tc.max)
		}
	}
}

func TestDefaultCapacityPerFormat(t *testing.T) {
	assert.Equal(t, 1, defaultCapacity(models.FormatGauntlet))
	assert.Equal(t, 8, defaultCapacity(models.FormatSingleElimination))
	assert.Equal(t, 8, defaultCapacity(models.FormatTeamBattle))

	// The default field always passes its own format's validation.
	for _, f := range []models.TournamentFormat{
		models.FormatSingleElimination,
		models.FormatRoundRobin,
		models.FormatGauntlet,
		models.FormatTeamBattle,
	} {
		assert.NoError(t, validateFormatCapacity(f, defaultCapacity(f)))
	}
}
