package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-arena-system/models"
)

func testAgent(id string) *models.Agent {
	return &models.Agent{ID: id, ExternalUserID: "user-1", Name: "Agent " + id}
}

func optimizationScenario() *models.Scenario {
	return &models.Scenario{
		ID:         "s-opt",
		Name:       "Hot Path Trim",
		Category:   models.ScenarioOptimization,
		Objectives: []string{"reduce latency"},
	}
}

func debuggingScenario(fixes int) *models.Scenario {
	return &models.Scenario{
		ID:            "s-dbg",
		Name:          "Null Deref Hunt",
		Category:      models.ScenarioDebugging,
		RequiredFixes: fixes,
	}
}

func TestRunCompletesOnProgress(t *testing.T) {
	provider := NewScriptedProvider()
	provider.Skills["a1"] = 1.0 // 0.2 progress per step
	runner := NewScenarioRunner(provider)

	res, err := runner.Run(context.Background(), optimizationScenario(), testAgent("a1"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Len(t, res.Steps, 5)
	assert.GreaterOrEqual(t, res.Steps[len(res.Steps)-1].Progress, 1.0)
	assert.Greater(t, res.Score, 0.0)
}

func TestRunDebuggingCountsFixes(t *testing.T) {
	provider := NewScriptedProvider()
	provider.Skills["a1"] = 0.9 // above the fix threshold every step
	runner := NewScenarioRunner(provider)

	res, err := runner.Run(context.Background(), debuggingScenario(2), testAgent("a1"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	require.Len(t, res.Steps, 2)
	assert.True(t, res.Steps[0].FixFound)
	assert.True(t, res.Steps[1].FixFound)
}

func TestRunDebuggingAttemptCap(t *testing.T) {
	provider := NewScriptedProvider()
	provider.Skills["a1"] = 0.3 // never reaches the fix threshold
	runner := NewScenarioRunner(provider)

	res, err := runner.Run(context.Background(), debuggingScenario(3), testAgent("a1"))
	require.NoError(t, err)

	// The cap bounds attempts, not fixes: five low-confidence tries, then done.
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Len(t, res.Steps, 5)
	for _, s := range res.Steps {
		assert.False(t, s.FixFound)
	}
}

func TestRunGenericStepCap(t *testing.T) {
	provider := NewScriptedProvider()
	provider.Skills["a1"] = 0.1
	runner := NewScenarioRunner(provider)

	res, err := runner.Run(context.Background(), optimizationScenario(), testAgent("a1"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Len(t, res.Steps, 10)
	assert.Less(t, res.Steps[len(res.Steps)-1].Progress, 1.0)
}

func TestRunDecisionFailureProducesErroredRecord(t *testing.T) {
	provider := NewScriptedProvider()
	provider.Err = errors.New("backend unreachable")
	runner := NewScenarioRunner(provider)

	res, err := runner.Run(context.Background(), optimizationScenario(), testAgent("a1"))
	require.NoError(t, err, "decision failures map to the record, not the error return")

	assert.Equal(t, OutcomeErrored, res.Outcome)
	assert.Contains(t, res.Error, "backend unreachable")
	assert.Empty(t, res.Steps)
}

func TestRunStopDuringStepDelay(t *testing.T) {
	provider := NewScriptedProvider()
	provider.Skills["a1"] = 0.1
	runner := NewScenarioRunner(provider)
	runner.StepDelay = time.Second

	done := make(chan *ExecutionResult, 1)
	go func() {
		res, _ := runner.Run(context.Background(), optimizationScenario(), testAgent("a1"))
		done <- res
	}()

	time.Sleep(50 * time.Millisecond)
	runner.Stop()

	select {
	case res := <-done:
		assert.Equal(t, OutcomeStopped, res.Outcome)
		assert.NotEmpty(t, res.Steps, "the step before the stop is kept")
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestPauseAndResume(t *testing.T) {
	provider := NewScriptedProvider()
	provider.Skills["a1"] = 1.0
	runner := NewScenarioRunner(provider)
	runner.Pause()

	done := make(chan *ExecutionResult, 1)
	go func() {
		res, _ := runner.Run(context.Background(), optimizationScenario(), testAgent("a1"))
		done <- res
	}()

	select {
	case <-done:
		t.Fatal("run finished while paused")
	case <-time.After(100 * time.Millisecond):
	}

	runner.Resume()
	select {
	case res := <-done:
		assert.Equal(t, OutcomeCompleted, res.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not resume")
	}
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewScenarioRunner(NewScriptedProvider())
	res, err := runner.Run(ctx, optimizationScenario(), testAgent("a1"))

	assert.Error(t, err)
	assert.Equal(t, OutcomeStopped, res.Outcome)
}
