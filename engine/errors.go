package engine

import "fmt"

// InvalidFormatError reports a bracket construction call whose participant
// count violates the format's constraints. Fails fast, never retried.
type InvalidFormatError struct {
	Format  string
	Got     int
	Message string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid %s bracket: %s (got %d participants)", e.Format, e.Message, e.Got)
}

// ParticipantNotFoundError reports a missing agent record at match time.
// The orchestrator catches it per-match and records a null-winner result.
type ParticipantNotFoundError struct {
	AgentID string
}

func (e *ParticipantNotFoundError) Error() string {
	return fmt.Sprintf("participant agent %s not found", e.AgentID)
}

// FusionError reports an invalid fuse attempt. The collection is left untouched.
type FusionError struct {
	Reason string
}

func (e *FusionError) Error() string {
	return "fusion rejected: " + e.Reason
}

// DecisionFailure wraps whatever the decision provider returned. Caught at the
// scenario loop boundary; the run ends errored with a partial result.
type DecisionFailure struct {
	Step int
	Err  error
}

func (e *DecisionFailure) Error() string {
	return fmt.Sprintf("decision provider failed at step %d: %v", e.Step, e.Err)
}

func (e *DecisionFailure) Unwrap() error { return e.Err }
