package engine

import (
	"context"
	"time"

	"agent-arena-system/models"
)

// AgentStore resolves participant agent records at match time.
type AgentStore interface {
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
}

// sideOutcome aggregates one participant's scenario runs. Team participants
// run every member and sum scores; a side is clean only if all members are.
type sideOutcome struct {
	score float64
	steps int
	clean bool
	errMsg string
}

// MatchRunner executes one bracket slot by running each side through the
// scenario loop and comparing scores. It never writes the bracket: it
// returns a result and the orchestrator performs the write.
type MatchRunner struct {
	agents   AgentStore
	provider DecisionProvider
	// Pacing handed to each scenario run; zero in headless mode.
	StepDelay time.Duration
}

func NewMatchRunner(agents AgentStore, provider DecisionProvider) *MatchRunner {
	return &MatchRunner{agents: agents, provider: provider}
}

func (m *MatchRunner) loadAgent(ctx context.Context, id string) (*models.Agent, error) {
	agent, err := m.agents.GetAgent(ctx, id)
	if err != nil || agent == nil {
		return nil, &ParticipantNotFoundError{AgentID: id}
	}
	return agent, nil
}

func (m *MatchRunner) runParticipant(ctx context.Context, p *models.Participant, scenario *models.Scenario) (*sideOutcome, error) {
	members := p.TeamMembers
	if len(members) == 0 {
		members = []string{p.AgentID}
	}
	out := &sideOutcome{clean: true}
	for _, id := range members {
		agent, err := m.loadAgent(ctx, id)
		if err != nil {
			return nil, err
		}
		runner := NewScenarioRunner(m.provider)
		runner.StepDelay = m.StepDelay
		run, err := runner.Run(ctx, scenario, agent)
		if err != nil {
			return nil, err
		}
		out.score += run.Score
		out.steps += len(run.Steps)
		if run.Outcome == OutcomeErrored || run.Outcome == OutcomeStopped {
			out.clean = false
			out.errMsg = run.Error
		}
	}
	return out, nil
}

// Run resolves a match against a scenario. Single-participant matches
// (gauntlet steps) score one side only. Ties go to participant1, the higher
// seed, with the Draw flag set so consumers can see the tie was broken by
// seeding, not play. A timestamped result is always produced, even on
// partial failure.
func (m *MatchRunner) Run(ctx context.Context, match *models.BracketMatch, scenario *models.Scenario) (*models.MatchResult, error) {
	result := &models.MatchResult{
		Scores:  map[string]float64{},
		Metrics: map[string]float64{},
	}
	defer func() { result.FinishedAt = time.Now() }()

	if match.Participant1 == nil {
		return nil, &ParticipantNotFoundError{AgentID: "(empty slot)"}
	}

	p1 := match.Participant1
	side1, err := m.runParticipant(ctx, p1, scenario)
	if err != nil {
		return nil, err
	}
	result.Scores[p1.AgentID] = side1.score
	result.Metrics["steps_p1"] = float64(side1.steps)

	if match.Participant2 == nil {
		// Gauntlet step: pass on a clean run, fail otherwise.
		if side1.clean {
			result.WinnerID = p1.AgentID
		} else {
			result.Error = side1.errMsg
		}
		return result, nil
	}

	p2 := match.Participant2
	side2, err := m.runParticipant(ctx, p2, scenario)
	if err != nil {
		return nil, err
	}
	result.Scores[p2.AgentID] = side2.score
	result.Metrics["steps_p2"] = float64(side2.steps)

	// An errored side forfeits to a clean opponent.
	switch {
	case !side1.clean && !side2.clean:
		result.Error = "both sides failed: " + side1.errMsg
		return result, nil
	case side1.clean && !side2.clean:
		result.WinnerID, result.LoserID = p1.AgentID, p2.AgentID
		return result, nil
	case !side1.clean && side2.clean:
		result.WinnerID, result.LoserID = p2.AgentID, p1.AgentID
		return result, nil
	}

	switch {
	case side1.score > side2.score:
		result.WinnerID, result.LoserID = p1.AgentID, p2.AgentID
	case side2.score > side1.score:
		result.WinnerID, result.LoserID = p2.AgentID, p1.AgentID
	default:
		result.WinnerID, result.LoserID = p1.AgentID, p2.AgentID
		result.Draw = true
	}
	return result, nil
}
