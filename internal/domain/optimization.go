package domain

import (
	"fmt"
	"time"
)

// Search algorithms
const (
	AlgorithmGrid     = "grid"
	AlgorithmRandom   = "random"
	AlgorithmGenetic  = "genetic"
	AlgorithmBayesian = "bayesian"
)

// Defaults applied by WithDefaults.
const (
	DefaultTopN           = 5
	DefaultParallelism    = 1
	DefaultPopulationSize = 20
	DefaultGenerations    = 10
	DefaultMutationRate   = 0.1
	DefaultCrossoverRate  = 0.7
	DefaultSampleBudget   = 50
	DefaultEliteCount     = 2
)

// OptimizationSettings selects and tunes a search strategy.
//
// The genetic rates and elite count are pointers so that an explicit 0
// (no mutation, no crossover, no elitism) is distinguishable from unset.
type OptimizationSettings struct {
	Algorithm      string   `json:"algorithm" yaml:"algorithm"`
	PopulationSize int      `json:"populationSize,omitempty" yaml:"populationSize,omitempty"`
	Generations    int      `json:"generations,omitempty" yaml:"generations,omitempty"`
	MutationRate   *float64 `json:"mutationRate,omitempty" yaml:"mutationRate,omitempty"`
	CrossoverRate  *float64 `json:"crossoverRate,omitempty" yaml:"crossoverRate,omitempty"`
	SampleBudget   int      `json:"sampleBudget,omitempty" yaml:"sampleBudget,omitempty"`
	EliteCount     *int     `json:"eliteCount,omitempty" yaml:"eliteCount,omitempty"`
	Seed           int64    `json:"seed" yaml:"seed"`
	TopN           int      `json:"topN,omitempty" yaml:"topN,omitempty"`
	Parallelism    int      `json:"parallelism,omitempty" yaml:"parallelism,omitempty"`
}

// WithDefaults fills unset values. Genetic settings are only filled when the
// algorithm is genetic; the default elite count is min(2, populationSize-1).
func (s OptimizationSettings) WithDefaults() OptimizationSettings {
	if s.Algorithm == "" {
		s.Algorithm = AlgorithmGrid
	}
	if s.TopN <= 0 {
		s.TopN = DefaultTopN
	}
	if s.Parallelism <= 0 {
		s.Parallelism = DefaultParallelism
	}
	if s.SampleBudget <= 0 {
		s.SampleBudget = DefaultSampleBudget
	}
	if s.Algorithm != AlgorithmGenetic {
		return s
	}

	if s.PopulationSize <= 0 {
		s.PopulationSize = DefaultPopulationSize
	}
	if s.Generations <= 0 {
		s.Generations = DefaultGenerations
	}
	if s.MutationRate == nil {
		v := DefaultMutationRate
		s.MutationRate = &v
	}
	if s.CrossoverRate == nil {
		v := DefaultCrossoverRate
		s.CrossoverRate = &v
	}
	if s.EliteCount == nil {
		n := min(DefaultEliteCount, s.PopulationSize-1)
		if n < 0 {
			n = 0
		}
		s.EliteCount = &n
	}
	return s
}

// Mutation returns the mutation rate, 0 when unset.
func (s OptimizationSettings) Mutation() float64 {
	if s.MutationRate == nil {
		return 0
	}
	return *s.MutationRate
}

// Crossover returns the crossover rate, 0 when unset.
func (s OptimizationSettings) Crossover() float64 {
	if s.CrossoverRate == nil {
		return 0
	}
	return *s.CrossoverRate
}

// Elites returns the elite count, 0 when unset.
func (s OptimizationSettings) Elites() int {
	if s.EliteCount == nil {
		return 0
	}
	return *s.EliteCount
}

// Validate checks settings after defaults have been applied. Genetic fields
// are only checked for genetic search.
func (s OptimizationSettings) Validate() error {
	switch s.Algorithm {
	case AlgorithmGrid, AlgorithmRandom, AlgorithmGenetic, AlgorithmBayesian:
	default:
		return NewValidationError("settings.algorithm", fmt.Sprintf("unknown value %q", s.Algorithm))
	}
	if s.Algorithm != AlgorithmGenetic {
		return nil
	}
	if m := s.Mutation(); m < 0 || m > 1 {
		return NewValidationError("settings.mutationRate", "must be within [0, 1]")
	}
	if c := s.Crossover(); c < 0 || c > 1 {
		return NewValidationError("settings.crossoverRate", "must be within [0, 1]")
	}
	if s.PopulationSize < 2 {
		return NewValidationError("settings.populationSize", "genetic search needs at least 2")
	}
	if s.Generations < 1 {
		return NewValidationError("settings.generations", "must be at least 1")
	}
	if e := s.Elites(); e < 0 || e >= s.PopulationSize {
		return NewValidationError("settings.eliteCount", "must be within [0, populationSize)")
	}
	return nil
}

// OptimizationRun is the stored record of a finished optimizer run.
type OptimizationRun struct {
	RunID        string               `json:"runId"`
	StrategyName string               `json:"strategyName"`
	Algorithm    string               `json:"algorithm"`
	State        string               `json:"state"`
	Settings     OptimizationSettings `json:"settings"`
	Space        ParameterSpace       `json:"space"`
	Constraints  *RiskConstraints     `json:"constraints,omitempty"`
	Completed    int                  `json:"completed"`
	Total        int                  `json:"total"`
	Leaderboard  []LeaderboardEntry   `json:"leaderboard"`
	History      []LeaderboardEntry   `json:"history"`
	CreatedAt    time.Time            `json:"createdAt"`
}
