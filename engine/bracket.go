package engine

import (
	"fmt"

	"agent-arena-system/models"
)

// BuildBracket produces the round structure for a participant list and
// format. Deterministic given identical input order: seed order is input
// order, and any shuffling is the caller's responsibility beforehand.
//
// Advancement mapping (relied on by everything downstream): the survivor at
// position i of a round feeds match floor(i/2) of the next round, slot 1 on
// even i, slot 2 on odd i. Winners occupy positions 0..matches-1 in match
// order; a bye participant occupies the position after the last match.
func BuildBracket(participants []models.Participant, format models.TournamentFormat) (*models.Bracket, error) {
	switch format {
	case models.FormatSingleElimination:
		return buildSingleElimination(participants)
	case models.FormatRoundRobin:
		return buildRoundRobin(participants)
	case models.FormatGauntlet:
		return buildGauntlet(participants)
	case models.FormatTeamBattle:
		return buildTeamBattle(participants)
	default:
		return nil, &InvalidFormatError{Format: string(format), Got: len(participants), Message: "unknown format"}
	}
}

func buildSingleElimination(participants []models.Participant) (*models.Bracket, error) {
	n := len(participants)
	if n == 0 {
		return nil, &InvalidFormatError{Format: "single_elimination", Got: 0, Message: "at least one participant required"}
	}
	bracket := &models.Bracket{Format: models.FormatSingleElimination}
	if n == 1 {
		// Zero rounds, immediate winner.
		w := participants[0]
		bracket.InstantWinner = &w
		return bracket, nil
	}

	// Survivors of the current round in position order. Nil entries are
	// winners not yet determined; concrete entries are byes carried forward.
	survivors := make([]*models.Participant, n)
	for i := range participants {
		p := participants[i]
		survivors[i] = &p
	}

	for len(survivors) > 1 {
		pairs := len(survivors) / 2
		round := &models.BracketRound{}
		next := make([]*models.Participant, 0, pairs+len(survivors)%2)
		for i := 0; i < pairs; i++ {
			round.Matches = append(round.Matches, &models.BracketMatch{
				Index:        i,
				Participant1: survivors[2*i],
				Participant2: survivors[2*i+1],
				Status:       models.MatchPending,
			})
			next = append(next, nil) // winner placeholder
		}
		if len(survivors)%2 == 1 {
			// Trailing participant advances on a bye, no match is scored.
			next = append(next, survivors[len(survivors)-1])
		}
		round.IsFinal = len(next) == 1
		bracket.Rounds = append(bracket.Rounds, round)
		survivors = next
	}
	return bracket, nil
}

func buildRoundRobin(participants []models.Participant) (*models.Bracket, error) {
	n := len(participants)
	if n < 2 {
		return nil, &InvalidFormatError{Format: "round_robin", Got: n, Message: "at least two participants required"}
	}
	// All unordered pairs (i,j), i<j, nominally concurrent in a single round.
	round := &models.BracketRound{IsFinal: true}
	idx := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			p1, p2 := participants[i], participants[j]
			round.Matches = append(round.Matches, &models.BracketMatch{
				Index:        idx,
				Participant1: &p1,
				Participant2: &p2,
				Status:       models.MatchPending,
			})
			idx++
		}
	}
	return &models.Bracket{Format: models.FormatRoundRobin, Rounds: []*models.BracketRound{round}}, nil
}

func buildGauntlet(participants []models.Participant) (*models.Bracket, error) {
	if len(participants) != 1 {
		return nil, &InvalidFormatError{Format: "gauntlet", Got: len(participants), Message: "exactly one participant required"}
	}
	round := &models.BracketRound{IsFinal: true}
	for i, diff := range models.GauntletDifficulties {
		p := participants[0]
		round.Matches = append(round.Matches, &models.BracketMatch{
			Index:        i,
			Participant1: &p,
			Difficulty:   diff,
			Status:       models.MatchPending,
		})
	}
	return &models.Bracket{Format: models.FormatGauntlet, Rounds: []*models.BracketRound{round}}, nil
}

func buildTeamBattle(participants []models.Participant) (*models.Bracket, error) {
	n := len(participants)
	if n < 4 {
		return nil, &InvalidFormatError{Format: "team_battle", Got: n, Message: "at least four participants required"}
	}
	if n%2 != 0 {
		// Rejecting beats silently dropping the trailing registrant.
		return nil, &InvalidFormatError{Format: "team_battle", Got: n, Message: "even participant count required"}
	}
	teams := make([]models.Participant, 0, n/2)
	for i := 0; i < n; i += 2 {
		a, b := participants[i], participants[i+1]
		teams = append(teams, models.Participant{
			AgentID:     fmt.Sprintf("%s+%s", a.AgentID, b.AgentID),
			TeamMembers: []string{a.AgentID, b.AgentID},
		})
	}
	bracket, err := buildSingleElimination(teams)
	if err != nil {
		return nil, err
	}
	bracket.Format = models.FormatTeamBattle
	return bracket, nil
}
