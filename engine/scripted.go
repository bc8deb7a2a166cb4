package engine

import (
	"context"
	"fmt"
	"hash/fnv"

	"agent-arena-system/models"
)

// ScriptedProvider is a deterministic decision source. Confidence derives
// from the agent's configured skill (config key "skill", in [0,1]) or, when
// absent, from a stable hash of the agent id, so the same matchup always
// resolves the same way. Used for local play and exercised heavily in tests.
type ScriptedProvider struct {
	// Skill overrides per agent id, checked before config. Tests use this to
	// force outcomes.
	Skills map[string]float64
	// Err, when set, makes every call fail. Simulates an unreachable
	// decision backend.
	Err error
}

func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{Skills: map[string]float64{}}
}

func (p *ScriptedProvider) skillFor(dc DecisionContext) float64 {
	if s, ok := p.Skills[dc.AgentID]; ok {
		return s
	}
	if raw, ok := dc.AgentConfig["skill"]; ok {
		if s, ok := raw.(float64); ok && s >= 0 && s <= 1 {
			return s
		}
	}
	h := fnv.New32a()
	h.Write([]byte(dc.AgentID))
	return 0.3 + float64(h.Sum32()%60)/100 // stable value in [0.30, 0.89]
}

func (p *ScriptedProvider) Decide(ctx context.Context, dc DecisionContext) (Decision, error) {
	if p.Err != nil {
		return Decision{}, p.Err
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	skill := p.skillFor(dc)
	action := "work_objective"
	reasoning := fmt.Sprintf("step %d: advancing objectives", dc.Step)
	if dc.Scenario != nil && dc.Scenario.Category == models.ScenarioDebugging {
		action = "inspect_and_patch"
		reasoning = fmt.Sprintf("step %d: isolating fault %d", dc.Step, dc.FixesFound+1)
	}

	// Later steps trend slightly more confident, capped at the agent's skill
	// plus a small warm-up bonus.
	confidence := skill + float64(dc.Step)*0.02
	if confidence > 1 {
		confidence = 1
	}
	return Decision{
		Reasoning:  reasoning,
		Action:     action,
		Confidence: confidence,
		Parameters: map[string]interface{}{"step": dc.Step},
	}, nil
}
