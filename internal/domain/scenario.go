package domain

// ExecutionScenario scales the configured execution costs.
// Multipliers apply to the slippage model and commission respectively.
type ExecutionScenario struct {
	ScenarioID           string  `json:"scenarioId"` // "optimistic" | "realistic" | "pessimistic" | "degraded"
	SlippageMultiplier   float64 `json:"slippageMultiplier"`
	CommissionMultiplier float64 `json:"commissionMultiplier"`
}

// Scenario ID constants
const (
	ScenarioOptimistic  = "optimistic"
	ScenarioRealistic   = "realistic"
	ScenarioPessimistic = "pessimistic"
	ScenarioDegraded    = "degraded"
)

// Predefined execution scenarios.
var (
	ScenarioConfigOptimistic = ExecutionScenario{
		ScenarioID:           ScenarioOptimistic,
		SlippageMultiplier:   0.5,
		CommissionMultiplier: 0.5,
	}

	ScenarioConfigRealistic = ExecutionScenario{
		ScenarioID:           ScenarioRealistic,
		SlippageMultiplier:   1,
		CommissionMultiplier: 1,
	}

	ScenarioConfigPessimistic = ExecutionScenario{
		ScenarioID:           ScenarioPessimistic,
		SlippageMultiplier:   2,
		CommissionMultiplier: 2,
	}

	ScenarioConfigDegraded = ExecutionScenario{
		ScenarioID:           ScenarioDegraded,
		SlippageMultiplier:   4,
		CommissionMultiplier: 3,
	}
)

// AllScenarios returns the predefined scenarios from cheapest to most expensive.
func AllScenarios() []ExecutionScenario {
	return []ExecutionScenario{
		ScenarioConfigOptimistic,
		ScenarioConfigRealistic,
		ScenarioConfigPessimistic,
		ScenarioConfigDegraded,
	}
}

// ScenarioByID looks up a predefined scenario.
func ScenarioByID(id string) (ExecutionScenario, bool) {
	for _, s := range AllScenarios() {
		if s.ScenarioID == id {
			return s, true
		}
	}
	return ExecutionScenario{}, false
}
