package models

// ScenarioCategory drives the category bias of scenario-sourced chip drops
// and selects the completion predicate of the execution loop.
type ScenarioCategory string

const (
	ScenarioDebugging    ScenarioCategory = "debugging"
	ScenarioOptimization ScenarioCategory = "optimization"
	ScenarioGeneration   ScenarioCategory = "generation"
	ScenarioAnalysis     ScenarioCategory = "analysis"
)

// Scenario is a scripted challenge agents are run against.
type Scenario struct {
	ID          string           `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	Category    ScenarioCategory `gorm:"type:varchar(16);index" json:"category"`
	Difficulty  string           `gorm:"type:varchar(16);default:'medium'" json:"difficulty"`

	Objectives []string `gorm:"serializer:json" json:"objectives"`

	// Debugging scenarios complete when this many fixes are found.
	RequiredFixes int `json:"required_fixes" gorm:"default:0"`
	// Wall-clock budget in seconds; 0 means no limit.
	TimeLimitSec int `json:"time_limit_sec" gorm:"default:0"`

	Timestamps
}

// GauntletDifficulties are the fixed steps of a gauntlet run, in order.
var GauntletDifficulties = []string{"easy", "medium", "hard", "expert", "master"}
