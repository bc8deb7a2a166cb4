package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-arena-system/models"
)

// fakeWorld is an in-memory TournamentStore, AgentStore, StatsSource and
// RewardSink in one, so a test can assemble an orchestrator in a few lines.
type fakeWorld struct {
	mu        sync.Mutex
	agents    map[string]*models.Agent
	scenarios map[string]*models.Scenario
	stats     map[string]*models.UserProgress
	saves     int
	records   []*models.MatchRecord
	delivered []deliveredReward
}

type deliveredReward struct {
	userID    string
	placement string
	chip      *models.SkillChip
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		agents:    map[string]*models.Agent{},
		scenarios: map[string]*models.Scenario{"s-opt": optimizationScenario()},
		stats:     map[string]*models.UserProgress{},
	}
}

func (w *fakeWorld) addAgent(id, owner string) {
	w.agents[id] = &models.Agent{ID: id, ExternalUserID: owner, Name: "Agent " + id}
	if _, ok := w.stats[owner]; !ok {
		// Enough activity for a level-1 gate.
		w.stats[owner] = &models.UserProgress{ExternalUserID: owner, AgentsCreated: 2}
	}
}

func (w *fakeWorld) SaveTournament(_ context.Context, t *models.Tournament) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saves++
	return nil
}

func (w *fakeWorld) SaveMatchRecord(_ context.Context, rec *models.MatchRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, rec)
	return nil
}

func (w *fakeWorld) GetScenario(_ context.Context, id string) (*models.Scenario, error) {
	if s, ok := w.scenarios[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("scenario %s not found", id)
}

func (w *fakeWorld) GetAgent(_ context.Context, id string) (*models.Agent, error) {
	if a, ok := w.agents[id]; ok {
		return a, nil
	}
	return nil, nil
}

func (w *fakeWorld) UserStats(_ context.Context, userID string) (*models.UserProgress, error) {
	if p, ok := w.stats[userID]; ok {
		return p, nil
	}
	return &models.UserProgress{ExternalUserID: userID}, nil
}

func (w *fakeWorld) Deliver(_ context.Context, userID, _, placement string, chip *models.SkillChip) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delivered = append(w.delivered, deliveredReward{userID: userID, placement: placement, chip: chip})
	return nil
}

// selectiveProvider fails for listed agents and otherwise defers to a
// scripted provider.
type selectiveProvider struct {
	inner   *ScriptedProvider
	failFor map[string]bool
}

func (p *selectiveProvider) Decide(ctx context.Context, dc DecisionContext) (Decision, error) {
	if p.failFor[dc.AgentID] {
		return Decision{}, errors.New("agent offline")
	}
	return p.inner.Decide(ctx, dc)
}

func testOrchestrator(w *fakeWorld, provider DecisionProvider) *TournamentOrchestrator {
	runner := NewMatchRunner(w, provider)
	return NewTournamentOrchestrator(w, w, runner, NewRewardRoller(nil), w, w)
}

func fourAgentTournament(w *fakeWorld) *models.Tournament {
	for _, id := range []string{"A", "B", "C", "D"} {
		w.addAgent(id, "owner-"+id)
	}
	return &models.Tournament{
		ID:              "t-1",
		Name:            "Spring Arena",
		Format:          models.FormatSingleElimination,
		Status:          models.TournamentRegistration,
		MaxParticipants: 4,
		ScenarioID:      "s-opt",
		Rewards: map[string]models.RewardSpec{
			models.TierWinner:      {Chips: 2, LegendaryTier: true},
			models.TierParticipant: {Chips: 1},
		},
	}
}

func joinAll(t *testing.T, o *TournamentOrchestrator, tour *models.Tournament, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, o.Join(context.Background(), tour, id, "owner-"+id))
	}
}

func TestJoinAutoStartsOnExactFill(t *testing.T) {
	w := newFakeWorld()
	o := testOrchestrator(w, NewScriptedProvider())
	tour := fourAgentTournament(w)

	joinAll(t, o, tour, "A", "B", "C")
	assert.Equal(t, models.TournamentRegistration, tour.Status)

	require.NoError(t, o.Join(context.Background(), tour, "D", "owner-D"))
	assert.Equal(t, models.TournamentRunning, tour.Status)
	require.NotNil(t, tour.Bracket)
	assert.Len(t, tour.Bracket.Rounds, 2)
}

func TestJoinRejections(t *testing.T) {
	w := newFakeWorld()
	o := testOrchestrator(w, NewScriptedProvider())
	tour := fourAgentTournament(w)
	ctx := context.Background()

	joinAll(t, o, tour, "A", "B")
	assert.Error(t, o.Join(ctx, tour, "A", "owner-A"), "duplicate entry")
	assert.Error(t, o.Join(ctx, tour, "ghost", "owner-A"), "unknown agent")

	// Eligibility gate: fresh owner fails a min-level-3 requirement.
	tour.Requirements.MinLevel = 3
	w.addAgent("E", "owner-E")
	w.stats["owner-E"] = &models.UserProgress{ExternalUserID: "owner-E"}
	assert.Error(t, o.Join(ctx, tour, "E", "owner-E"))
	tour.Requirements.MinLevel = 0

	joinAll(t, o, tour, "C", "D")
	assert.Error(t, o.Join(ctx, tour, "E", "owner-E"), "registration closed once running")
}

func TestRunFourAgentBracket(t *testing.T) {
	w := newFakeWorld()
	provider := NewScriptedProvider()
	provider.Skills = map[string]float64{"A": 0.9, "B": 0.1, "C": 0.2, "D": 0.8}
	o := testOrchestrator(w, provider)
	tour := fourAgentTournament(w)

	joinAll(t, o, tour, "A", "B", "C", "D")
	require.NoError(t, o.Run(context.Background(), tour))

	assert.Equal(t, models.TournamentCompleted, tour.Status)
	require.NotNil(t, tour.CompletedAt)

	final := tour.Bracket.Rounds[1].Matches[0]
	require.NotNil(t, final.Participant1)
	require.NotNil(t, final.Participant2)
	assert.Equal(t, "A", final.Participant1.AgentID)
	assert.Equal(t, "D", final.Participant2.AgentID)
	assert.Equal(t, "A", final.Result.WinnerID)

	require.Len(t, tour.Rankings, 4)
	assert.Equal(t, "A", tour.Rankings[0])
	assert.Equal(t, "D", tour.Rankings[1])

	assert.Len(t, w.records, 3, "two semifinals and a final persisted")

	// Winner tier (2 chips) for A, participant tier (1 chip) for the rest.
	byUser := map[string]int{}
	for _, d := range w.delivered {
		byUser[d.userID]++
	}
	assert.Equal(t, 2, byUser["owner-A"])
	assert.Equal(t, 1, byUser["owner-B"])
	assert.Equal(t, 1, byUser["owner-C"])
	assert.Equal(t, 1, byUser["owner-D"])
	for _, d := range w.delivered {
		if d.userID == "owner-A" {
			assert.Equal(t, models.TierWinner, d.placement)
		}
	}
}

func TestRunNullWinnerRoundStillCompletes(t *testing.T) {
	w := newFakeWorld()
	provider := &selectiveProvider{
		inner:   NewScriptedProvider(),
		failFor: map[string]bool{"A": true, "B": true},
	}
	provider.inner.Skills = map[string]float64{"C": 0.3, "D": 0.7}
	o := testOrchestrator(w, provider)
	tour := fourAgentTournament(w)

	joinAll(t, o, tour, "A", "B", "C", "D")
	require.NoError(t, o.Run(context.Background(), tour))

	// Both sides of the first semifinal failed: null winner, match failed,
	// round still completed and the other winner advanced on a bye.
	semi := tour.Bracket.Rounds[0].Matches[0]
	assert.Equal(t, models.MatchFailed, semi.Status)
	assert.Empty(t, semi.Result.WinnerID)

	final := tour.Bracket.Rounds[1].Matches[0]
	assert.Equal(t, models.MatchCompleted, final.Status)
	assert.Equal(t, "D", final.Result.WinnerID)
	assert.EqualValues(t, 1, final.Result.Metrics["bye"])

	assert.Equal(t, models.TournamentCompleted, tour.Status)
	assert.Equal(t, "D", tour.Rankings[0])
}

func TestStatusTransitionsAreMonotonic(t *testing.T) {
	tour := &models.Tournament{Status: models.TournamentCompleted}
	assert.Error(t, transition(tour, models.TournamentRunning))
	assert.Error(t, transition(tour, models.TournamentRegistration))

	tour.Status = models.TournamentRunning
	assert.Error(t, transition(tour, models.TournamentRegistration))
	assert.NoError(t, transition(tour, models.TournamentCompleted))
}

func TestCancelIsTerminal(t *testing.T) {
	w := newFakeWorld()
	o := testOrchestrator(w, NewScriptedProvider())
	tour := fourAgentTournament(w)
	ctx := context.Background()

	joinAll(t, o, tour, "A", "B")
	require.NoError(t, o.Cancel(ctx, tour))
	assert.Equal(t, models.TournamentCancelled, tour.Status)

	assert.Error(t, o.Join(ctx, tour, "C", "owner-C"))
	assert.Error(t, o.Cancel(ctx, tour), "already terminal")
}

func TestRunGauntlet(t *testing.T) {
	w := newFakeWorld()
	provider := NewScriptedProvider()
	provider.Skills = map[string]float64{"A": 0.9}
	o := testOrchestrator(w, provider)
	w.addAgent("A", "owner-A")

	tour := &models.Tournament{
		ID:              "t-g",
		Format:          models.FormatGauntlet,
		Status:          models.TournamentRegistration,
		MaxParticipants: 1,
		ScenarioID:      "s-opt",
	}
	joinAll(t, o, tour, "A")
	require.NoError(t, o.Run(context.Background(), tour))

	assert.Equal(t, models.TournamentCompleted, tour.Status)
	require.Len(t, tour.Bracket.Rounds, 1)
	for _, m := range tour.Bracket.Rounds[0].Matches {
		assert.Equal(t, models.MatchCompleted, m.Status)
		assert.Equal(t, "A", m.Result.WinnerID)
	}
	assert.Equal(t, []string{"A"}, tour.Rankings)
}

func TestRunInstantWinnerCompletesWithoutMatches(t *testing.T) {
	w := newFakeWorld()
	o := testOrchestrator(w, NewScriptedProvider())
	w.addAgent("A", "owner-A")

	bracket, err := BuildBracket([]models.Participant{{AgentID: "A"}}, models.FormatSingleElimination)
	require.NoError(t, err)
	require.NotNil(t, bracket.InstantWinner)

	tour := &models.Tournament{
		ID:           "t-solo",
		Format:       models.FormatSingleElimination,
		Status:       models.TournamentRunning,
		Participants: []models.Participant{{AgentID: "A"}},
		Bracket:      bracket,
		ScenarioID:   "s-opt",
		Rewards: map[string]models.RewardSpec{
			models.TierWinner: {Chips: 1},
		},
	}
	require.NoError(t, o.Run(context.Background(), tour))

	assert.Equal(t, models.TournamentCompleted, tour.Status)
	assert.Equal(t, []string{"A"}, tour.Rankings)
	assert.NotNil(t, tour.CompletedAt)
	assert.Empty(t, w.records, "no matches are played")
	require.Len(t, w.delivered, 1)
	assert.Equal(t, models.TierWinner, w.delivered[0].placement)
}

func TestRunRequiresRunningStatus(t *testing.T) {
	w := newFakeWorld()
	o := testOrchestrator(w, NewScriptedProvider())
	tour := fourAgentTournament(w)

	assert.Error(t, o.Run(context.Background(), tour), "still in registration")

	joinAll(t, o, tour, "A", "B", "C", "D")
	require.NoError(t, o.Run(context.Background(), tour))
	assert.Error(t, o.Run(context.Background(), tour), "already completed")
}

func TestRunRoundRobinRankings(t *testing.T) {
	w := newFakeWorld()
	provider := NewScriptedProvider()
	provider.Skills = map[string]float64{"A": 0.9, "B": 0.5, "C": 0.1}
	o := testOrchestrator(w, provider)
	for _, id := range []string{"A", "B", "C"} {
		w.addAgent(id, "owner-"+id)
	}

	tour := &models.Tournament{
		ID:              "t-rr",
		Format:          models.FormatRoundRobin,
		Status:          models.TournamentRegistration,
		MaxParticipants: 3,
		ScenarioID:      "s-opt",
	}
	joinAll(t, o, tour, "A", "B", "C")
	require.NoError(t, o.Run(context.Background(), tour))

	assert.Equal(t, models.TournamentCompleted, tour.Status)
	assert.Equal(t, []string{"A", "B", "C"}, tour.Rankings)
}

func TestStartFailsOnFormatError(t *testing.T) {
	w := newFakeWorld()
	o := testOrchestrator(w, NewScriptedProvider())
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		w.addAgent(id, "owner-"+id)
	}

	// Five entrants cannot form teams of two.
	tour := &models.Tournament{
		ID:              "t-tb",
		Format:          models.FormatTeamBattle,
		Status:          models.TournamentRegistration,
		MaxParticipants: 8,
		ScenarioID:      "s-opt",
	}
	joinAll(t, o, tour, "A", "B", "C", "D", "E")

	err := o.Start(context.Background(), tour)
	var ife *InvalidFormatError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, models.TournamentError, tour.Status)
	assert.NotEmpty(t, tour.ErrorMessage)
}
