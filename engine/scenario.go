package engine

import (
	"context"
	"sync"
	"time"

	"agent-arena-system/models"
)

// Decision is the structured action returned by the decision provider.
type Decision struct {
	Reasoning  string                 `json:"reasoning"`
	Action     string                 `json:"action"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Confidence float64                `json:"confidence"` // in [0,1]
	NextSteps  []string               `json:"next_steps,omitempty"`
}

// DecisionContext is the snapshot handed to the provider each iteration.
type DecisionContext struct {
	Scenario      *models.Scenario
	AgentID       string
	AgentConfig   map[string]interface{}
	Objectives    []string
	Step          int
	TimeRemaining time.Duration // <0 when the scenario has no limit
	PriorProgress float64
	FixesFound    int
}

// DecisionProvider is the external agent-decision capability. The call is the
// loop's only suspension point; failures are caught at the loop boundary and
// mapped to an errored outcome, never propagated raw.
type DecisionProvider interface {
	Decide(ctx context.Context, dc DecisionContext) (Decision, error)
}

// ExecOutcome is the terminal state of one scenario run.
type ExecOutcome string

const (
	OutcomeCompleted ExecOutcome = "completed"
	OutcomeTimedOut  ExecOutcome = "timed_out"
	OutcomeErrored   ExecOutcome = "errored"
	OutcomeStopped   ExecOutcome = "stopped"
)

// ScenarioStep records one decide/apply iteration.
type ScenarioStep struct {
	Decision  Decision `json:"decision"`
	Progress  float64  `json:"progress"`
	FixFound  bool     `json:"fix_found,omitempty"`
	Score     float64  `json:"score"`
	ElapsedMs int64    `json:"elapsed_ms"`
}

// ExecutionResult is the transient record of one run. Terminal records always
// carry enough structure (outcome, error, partial steps, score) for a
// consumer to render a specific failure explanation.
type ExecutionResult struct {
	AgentID    string         `json:"agent_id"`
	ScenarioID string         `json:"scenario_id"`
	Outcome    ExecOutcome    `json:"outcome"`
	Steps      []ScenarioStep `json:"steps"`
	Score      float64        `json:"score"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMs int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
}

// Step caps: debugging scenarios are capped on step attempts, not fixes.
const (
	genericStepCap   = 10
	debuggingStepCap = 5

	fixConfidenceThreshold = 0.6
	genericStepProgress    = 0.2
)

// ScenarioRunner drives one agent through a bounded decide/apply/update cycle.
// One runner per run; Pause, Resume and Stop may be called from other
// goroutines while Run is in flight. Steps never overlap: the loop is strictly
// sequential between suspension points.
type ScenarioRunner struct {
	provider DecisionProvider
	// Inter-step pacing for visualization. Zero skips the pause entirely
	// (headless/test mode) without changing step ordering.
	StepDelay time.Duration
	// OnStep, when set, is called synchronously after each recorded step.
	// Used to stream live runs to a client.
	OnStep func(ScenarioStep)

	mu     sync.Mutex
	paused bool
	unpause chan struct{}
	stop    chan struct{}
	stopOnce sync.Once
}

func NewScenarioRunner(provider DecisionProvider) *ScenarioRunner {
	return &ScenarioRunner{
		provider: provider,
		unpause:  make(chan struct{}),
		stop:     make(chan struct{}),
	}
}

// Pause suspends the step loop before its next iteration without ending it.
func (r *ScenarioRunner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
}

// Resume releases a paused loop.
func (r *ScenarioRunner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		r.paused = false
		close(r.unpause)
		r.unpause = make(chan struct{})
	}
}

// Stop ends the run at the next iteration boundary. The run still produces a
// result record with outcome stopped.
func (r *ScenarioRunner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *ScenarioRunner) waitIfPaused(ctx context.Context) error {
	for {
		r.mu.Lock()
		paused := r.paused
		ch := r.unpause
		r.mu.Unlock()
		if !paused {
			return nil
		}
		select {
		case <-ch:
		case <-r.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *ScenarioRunner) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// Run executes the loop until completion, step cap, timeout, stop, or a
// decision failure. It always returns a result; the error return is reserved
// for a cancelled context.
func (r *ScenarioRunner) Run(ctx context.Context, scenario *models.Scenario, agent *models.Agent) (*ExecutionResult, error) {
	res := &ExecutionResult{
		AgentID:    agent.ID,
		ScenarioID: scenario.ID,
		StartedAt:  time.Now(),
	}
	finish := func(outcome ExecOutcome) *ExecutionResult {
		res.Outcome = outcome
		res.DurationMs = time.Since(res.StartedAt).Milliseconds()
		return res
	}

	stepCap := genericStepCap
	if scenario.Category == models.ScenarioDebugging {
		stepCap = debuggingStepCap
	}
	limit := time.Duration(scenario.TimeLimitSec) * time.Second

	progress := 0.0
	fixes := 0

	for step := 0; step < stepCap; step++ {
		if err := r.waitIfPaused(ctx); err != nil {
			return finish(OutcomeStopped), err
		}
		if r.stopped() {
			return finish(OutcomeStopped), nil
		}
		// Timeout is checked once per iteration, not preemptively; a slow
		// decision call may overshoot the limit, which is accepted policy.
		elapsed := time.Since(res.StartedAt)
		if limit > 0 && elapsed >= limit {
			return finish(OutcomeTimedOut), nil
		}

		remaining := time.Duration(-1)
		if limit > 0 {
			remaining = limit - elapsed
		}
		decision, err := r.provider.Decide(ctx, DecisionContext{
			Scenario:      scenario,
			AgentID:       agent.ID,
			AgentConfig:   agent.Config,
			Objectives:    scenario.Objectives,
			Step:          step,
			TimeRemaining: remaining,
			PriorProgress: progress,
			FixesFound:    fixes,
		})
		if err != nil {
			if ctx.Err() != nil {
				return finish(OutcomeStopped), ctx.Err()
			}
			res.Error = (&DecisionFailure{Step: step, Err: err}).Error()
			return finish(OutcomeErrored), nil
		}

		// Apply the decision to local scenario state.
		stepRec := ScenarioStep{
			Decision:  decision,
			Score:     decision.Confidence * 10,
			ElapsedMs: time.Since(res.StartedAt).Milliseconds(),
		}
		if scenario.Category == models.ScenarioDebugging {
			if decision.Confidence >= fixConfidenceThreshold {
				fixes++
				stepRec.FixFound = true
			}
		} else {
			progress += decision.Confidence * genericStepProgress
		}
		stepRec.Progress = progress
		res.Steps = append(res.Steps, stepRec)
		res.Score += stepRec.Score
		if r.OnStep != nil {
			r.OnStep(stepRec)
		}

		if scenario.Category == models.ScenarioDebugging {
			if scenario.RequiredFixes > 0 && fixes >= scenario.RequiredFixes {
				return finish(OutcomeCompleted), nil
			}
		} else if progress >= 1.0 {
			return finish(OutcomeCompleted), nil
		}

		if r.StepDelay > 0 {
			timer := time.NewTimer(r.StepDelay)
			select {
			case <-timer.C:
			case <-r.stop:
				timer.Stop()
				return finish(OutcomeStopped), nil
			case <-ctx.Done():
				timer.Stop()
				return finish(OutcomeStopped), ctx.Err()
			}
		}
	}
	// Step cap reached without meeting the completion predicate.
	return finish(OutcomeCompleted), nil
}
