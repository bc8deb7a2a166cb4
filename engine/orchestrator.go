package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"agent-arena-system/models"
)

// TournamentStore is the persistence surface the orchestrator needs.
type TournamentStore interface {
	SaveTournament(ctx context.Context, t *models.Tournament) error
	SaveMatchRecord(ctx context.Context, rec *models.MatchRecord) error
	GetScenario(ctx context.Context, id string) (*models.Scenario, error)
}

// StatsSource supplies the activity counters behind the eligibility gate.
type StatsSource interface {
	UserStats(ctx context.Context, externalUserID string) (*models.UserProgress, error)
}

// RewardSink receives rolled placement rewards. How they are displayed or
// persisted is the sink's business.
type RewardSink interface {
	Deliver(ctx context.Context, externalUserID, tournamentID, placement string, chip *models.SkillChip) error
}

// TournamentOrchestrator drives a tournament end-to-end: registration →
// bracket generation → round-by-round execution → advancement → completion
// and reward distribution. It is the bracket's single writer; MatchRunner
// only ever returns results.
type TournamentOrchestrator struct {
	store  TournamentStore
	agents AgentStore
	runner *MatchRunner
	roller *RewardRoller
	sink   RewardSink
	stats  StatsSource
}

func NewTournamentOrchestrator(
	store TournamentStore,
	agents AgentStore,
	runner *MatchRunner,
	roller *RewardRoller,
	sink RewardSink,
	stats StatsSource,
) *TournamentOrchestrator {
	return &TournamentOrchestrator{
		store:  store,
		agents: agents,
		runner: runner,
		roller: roller,
		sink:   sink,
		stats:  stats,
	}
}

// transition enforces the monotonic status machine; backward moves and moves
// out of a terminal state are programming errors surfaced immediately.
func transition(t *models.Tournament, to models.TournamentStatus) error {
	allowed := map[models.TournamentStatus][]models.TournamentStatus{
		models.TournamentRegistration: {models.TournamentRunning, models.TournamentCancelled},
		models.TournamentRunning:      {models.TournamentCompleted, models.TournamentError, models.TournamentCancelled},
	}
	for _, next := range allowed[t.Status] {
		if next == to {
			t.Status = to
			return nil
		}
	}
	return fmt.Errorf("illegal tournament transition %s → %s", t.Status, to)
}

// Join registers an agent while the tournament is accepting entries. The
// eligibility gate uses the owner's activity-derived arena level and prior
// completed tournament count. When the entry fills the configured maximum
// exactly, the tournament auto-starts.
func (o *TournamentOrchestrator) Join(ctx context.Context, t *models.Tournament, agentID, ownerID string) error {
	if t.Status != models.TournamentRegistration {
		return fmt.Errorf("tournament %s is not accepting registrations (status %s)", t.ID, t.Status)
	}
	if len(t.Participants) >= t.MaxParticipants {
		return fmt.Errorf("tournament %s is full", t.ID)
	}
	if t.HasParticipant(agentID) {
		return fmt.Errorf("agent %s already registered", agentID)
	}
	if agent, err := o.agents.GetAgent(ctx, agentID); err != nil || agent == nil {
		return &ParticipantNotFoundError{AgentID: agentID}
	}

	prog, err := o.stats.UserStats(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("eligibility check failed: %w", err)
	}
	if prog.ArenaLevel() < t.Requirements.MinLevel {
		return fmt.Errorf("arena level %d below required %d", prog.ArenaLevel(), t.Requirements.MinLevel)
	}
	if int(prog.TournamentsCompleted) < t.Requirements.MinTournaments {
		return fmt.Errorf("requires %d completed tournaments, have %d", t.Requirements.MinTournaments, prog.TournamentsCompleted)
	}

	t.Participants = append(t.Participants, models.Participant{AgentID: agentID})
	if err := o.store.SaveTournament(ctx, t); err != nil {
		return err
	}

	// Exact fill required; no early start below max.
	if len(t.Participants) == t.MaxParticipants && len(t.Participants) >= t.MinParticipants() {
		return o.Start(ctx, t)
	}
	return nil
}

// Start moves registration → running and generates the bracket. Structural
// bracket errors (bad participant count for the format) park the tournament
// in the error terminal rather than leaving it half-started.
func (o *TournamentOrchestrator) Start(ctx context.Context, t *models.Tournament) error {
	if len(t.Participants) < t.MinParticipants() {
		return &InvalidFormatError{Format: string(t.Format), Got: len(t.Participants), Message: "not enough participants to start"}
	}
	if err := transition(t, models.TournamentRunning); err != nil {
		return err
	}
	bracket, err := BuildBracket(t.Participants, t.Format)
	if err != nil {
		t.Status = models.TournamentError
		t.ErrorMessage = err.Error()
		_ = o.store.SaveTournament(ctx, t)
		return err
	}
	now := time.Now()
	t.Bracket = bracket
	t.StartedAt = &now
	return o.store.SaveTournament(ctx, t)
}

// Cancel terminates a tournament that has not completed. First-class rather
// than a failure path so operators can retire stuck brackets.
func (o *TournamentOrchestrator) Cancel(ctx context.Context, t *models.Tournament) error {
	if err := transition(t, models.TournamentCancelled); err != nil {
		return err
	}
	return o.store.SaveTournament(ctx, t)
}

type matchOutcome struct {
	index  int
	result *models.MatchResult
}

// Run executes all remaining rounds. Rounds are strictly sequential; matches
// within a round run concurrently and the orchestrator waits for all of them,
// tolerating individual failures, before computing advancement.
func (o *TournamentOrchestrator) Run(ctx context.Context, t *models.Tournament) error {
	if t.Status != models.TournamentRunning || t.Bracket == nil {
		return fmt.Errorf("tournament %s is not running", t.ID)
	}
	if t.Bracket.InstantWinner != nil {
		return o.complete(ctx, t)
	}

	scenario, err := o.store.GetScenario(ctx, t.ScenarioID)
	if err != nil {
		t.Status = models.TournamentError
		t.ErrorMessage = "scenario unavailable: " + err.Error()
		_ = o.store.SaveTournament(ctx, t)
		return err
	}

	for ri, round := range t.Bracket.Rounds {
		if roundResolved(round) {
			continue // already executed; resume after the last finished round
		}
		o.runRound(ctx, t, ri, round, scenario)

		if !round.IsFinal {
			o.advance(t, ri)
		}
		if err := o.store.SaveTournament(ctx, t); err != nil {
			return err
		}
	}
	return o.complete(ctx, t)
}

func roundResolved(round *models.BracketRound) bool {
	for _, m := range round.Matches {
		if m.Status == models.MatchPending || m.Status == models.MatchRunning {
			return false
		}
	}
	return true
}

// runRound launches every pending match concurrently and drains results on a
// single goroutine, which is the only writer of the bracket structure.
func (o *TournamentOrchestrator) runRound(ctx context.Context, t *models.Tournament, ri int, round *models.BracketRound, scenario *models.Scenario) {
	results := make(chan matchOutcome, len(round.Matches))
	launched := 0

	for i, match := range round.Matches {
		if match.Status != models.MatchPending {
			continue
		}

		// Slots vacated by an upstream null-winner result resolve without play:
		// a lone participant advances on a bye, an empty pairing is a no-contest.
		if match.Difficulty == "" {
			if match.Participant1 == nil && match.Participant2 == nil {
				match.Status = models.MatchFailed
				match.Result = &models.MatchResult{Error: "no contest: both slots unresolved", FinishedAt: time.Now()}
				continue
			}
			if match.Participant1 == nil || match.Participant2 == nil {
				solo := match.Participant1
				if solo == nil {
					solo = match.Participant2
				}
				match.Status = models.MatchCompleted
				match.Result = &models.MatchResult{
					WinnerID:   solo.AgentID,
					Metrics:    map[string]float64{"bye": 1},
					FinishedAt: time.Now(),
				}
				continue
			}
		}

		match.Status = models.MatchRunning
		launched++
		go func(idx int, m *models.BracketMatch) {
			sc := scenario
			if m.Difficulty != "" {
				step := *scenario
				step.Difficulty = m.Difficulty
				sc = &step
			}
			res, err := o.runner.Run(ctx, m, sc)
			if err != nil {
				// Contained per match; the rest of the round still completes.
				log.Printf("[Orchestrator] match %d/%d of tournament %s failed: %v", ri, idx, t.ID, err)
				res = &models.MatchResult{Error: err.Error(), FinishedAt: time.Now()}
			}
			results <- matchOutcome{index: idx, result: res}
		}(i, match)
	}

	for ; launched > 0; launched-- {
		out := <-results
		match := round.Matches[out.index]
		match.Result = out.result
		if out.result.WinnerID == "" {
			match.Status = models.MatchFailed
		} else {
			match.Status = models.MatchCompleted
		}
		o.recordMatch(ctx, t, ri, match)
	}
}

func (o *TournamentOrchestrator) recordMatch(ctx context.Context, t *models.Tournament, ri int, match *models.BracketMatch) {
	rec := &models.MatchRecord{
		TournamentID: &t.ID,
		ScenarioID:   t.ScenarioID,
		RoundIndex:   ri,
		MatchIndex:   match.Index,
	}
	if match.Participant1 != nil {
		rec.Agent1ID = match.Participant1.AgentID
	}
	if match.Participant2 != nil {
		rec.Agent2ID = match.Participant2.AgentID
	}
	if r := match.Result; r != nil {
		rec.WinnerID = r.WinnerID
		rec.Draw = r.Draw
		rec.Error = r.Error
		if match.Participant1 != nil {
			rec.Agent1Score = r.Scores[match.Participant1.AgentID]
		}
		if match.Participant2 != nil {
			rec.Agent2Score = r.Scores[match.Participant2.AgentID]
		}
	}
	if err := o.store.SaveMatchRecord(ctx, rec); err != nil {
		log.Printf("[Orchestrator] failed to persist match record: %v", err)
	}
}

// advance moves winners of round ri into round ri+1 using the fixed index
// mapping: winner of match i → match floor(i/2), slot 1 on even i, slot 2 on
// odd i. Null-winner matches leave their slot empty; the sibling resolves it
// as a bye (or no-contest) when the next round executes.
func (o *TournamentOrchestrator) advance(t *models.Tournament, ri int) {
	round := t.Bracket.Rounds[ri]
	next := t.Bracket.Rounds[ri+1]
	for i, match := range round.Matches {
		winner := winnerParticipant(match)
		if winner == nil {
			continue
		}
		target := next.Matches[i/2]
		if i%2 == 0 {
			target.Participant1 = winner
		} else {
			target.Participant2 = winner
		}
	}
}

func winnerParticipant(match *models.BracketMatch) *models.Participant {
	if match.Result == nil || match.Result.WinnerID == "" {
		return nil
	}
	if match.Participant1 != nil && match.Participant1.AgentID == match.Result.WinnerID {
		return match.Participant1
	}
	if match.Participant2 != nil && match.Participant2.AgentID == match.Result.WinnerID {
		return match.Participant2
	}
	return nil
}

// complete computes rankings from the bracket history and distributes
// placement rewards, then archives the tournament in the completed state.
func (o *TournamentOrchestrator) complete(ctx context.Context, t *models.Tournament) error {
	t.Rankings = o.computeRankings(t)
	if err := transition(t, models.TournamentCompleted); err != nil {
		return err
	}
	now := time.Now()
	t.CompletedAt = &now
	if err := o.store.SaveTournament(ctx, t); err != nil {
		return err
	}
	o.distributeRewards(ctx, t)
	return nil
}

/// computeRankings orders participants from the bracket's match history: final
// winner first, final loser second, then earlier-round losers in reverse
// round order. Round-robin ranks by wins, then total score, then seed.
func (o *TournamentOrchestrator) computeRankings(t *models.Tournament) []string {
	b := t.Bracket
	if b == nil {
		return nil
	}
	if b.InstantWinner != nil {
		return []string{b.InstantWinner.AgentID}
	}
	switch t.Format {
	case models.FormatRoundRobin:
		return roundRobinRankings(t)
	case models.FormatGauntlet:
		return []string{t.Participants[0].AgentID}
	}

	var rankings []string
	seen := map[string]bool{}
	push := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			rankings = append(rankings, id)
		}
	}
	for ri := len(b.Rounds) - 1; ri >= 0; ri-- {
		for _, m := range b.Rounds[ri].Matches {
			if m.Result == nil {
				continue
			}
			if ri == len(b.Rounds)-1 {
				push(m.Result.WinnerID)
			}
		}
		for _, m := range b.Rounds[ri].Matches {
			if m.Result != nil {
				push(m.Result.LoserID)
			}
		}
	}
	return rankings
}

func roundRobinRankings(t *models.Tournament) []string {
	wins := map[string]int{}
	scores := map[string]float64{}
	seeds := map[string]int{}
	for i, p := range t.Participants {
		seeds[p.AgentID] = i
	}
	for _, m := range t.Bracket.Rounds[0].Matches {
		if m.Result == nil {
			continue
		}
		if m.Result.WinnerID != "" {
			wins[m.Result.WinnerID]++
		}
		for id, s := range m.Result.Scores {
			scores[id] += s
		}
	}
	ids := make([]string, 0, len(t.Participants))
	for _, p := range t.Participants {
		ids = append(ids, p.AgentID)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if wins[ids[i]] != wins[ids[j]] {
			return wins[ids[i]] > wins[ids[j]]
		}
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return seeds[ids[i]] < seeds[ids[j]]
	})
	return ids
}

// distributeRewards rolls chips per placement tier, falling through to the
// participant tier when a higher tier is not configured for this tournament.
// Sink failures are logged, not fatal; the tournament stays completed.
func (o *TournamentOrchestrator) distributeRewards(ctx context.Context, t *models.Tournament) {
	if o.sink == nil || len(t.Rewards) == 0 {
		return
	}
	tierFor := func(rank int) (string, models.RewardSpec, bool) {
		names := []string{models.TierParticipant}
		switch rank {
		case 0:
			names = []string{models.TierWinner, models.TierFinalist, models.TierParticipant}
		case 1:
			names = []string{models.TierFinalist, models.TierParticipant}
		}
		for _, n := range names {
			if spec, ok := t.Rewards[n]; ok {
				return n, spec, true
			}
		}
		return "", models.RewardSpec{}, false
	}

	for rank, id := range t.Rankings {
		placement, spec, ok := tierFor(rank)
		if !ok || spec.Chips <= 0 {
			continue
		}
		for _, agentID := range expandTeam(t, id) {
			agent, err := o.agents.GetAgent(ctx, agentID)
			if err != nil || agent == nil {
				log.Printf("[Orchestrator] reward skipped, agent %s not found", agentID)
				continue
			}
			rollCtx := RollContext{
				ExternalUserID: agent.ExternalUserID,
				TournamentID:   t.ID,
				LegendaryTier:  spec.LegendaryTier,
			}
			if rank == 0 {
				if prog, err := o.stats.UserStats(ctx, agent.ExternalUserID); err == nil && prog.TournamentsWon == 0 {
					rollCtx.FirstWin = true
				}
			}
			for n := 0; n < spec.Chips; n++ {
				chip := o.roller.GenerateChip(rollCtx)
				if err := o.sink.Deliver(ctx, agent.ExternalUserID, t.ID, placement, chip); err != nil {
					log.Printf("[Orchestrator] reward delivery failed for %s: %v", agent.ExternalUserID, err)
				}
			}
		}
	}
}

// expandTeam resolves a ranking entry to concrete agent ids (team entries
// carry a composite id).
func expandTeam(t *models.Tournament, id string) []string {
	if t.Bracket == nil {
		return []string{id}
	}
	for _, round := range t.Bracket.Rounds {
		for _, m := range round.Matches {
			for _, p := range []*models.Participant{m.Participant1, m.Participant2} {
				if p != nil && p.AgentID == id && len(p.TeamMembers) > 0 {
					return p.TeamMembers
				}
			}
		}
	}
	return []string{id}
}
