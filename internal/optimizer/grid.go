package optimizer

import (
	"strategy-lab/internal/domain"
)

// GridSearch enumerates the full Cartesian product of the enabled parameters.
// The first parameter varies slowest.
type GridSearch struct {
	s     *sampler
	total int
	next  int
}

// NewGridSearch creates a grid search over space.
func NewGridSearch(space domain.ParameterSpace) *GridSearch {
	s := newSampler(space, 0)
	return &GridSearch{s: s, total: s.gridSize()}
}

func (g *GridSearch) Name() string { return domain.AlgorithmGrid }

// Total is the exact grid size.
func (g *GridSearch) Total() int { return g.total }

func (g *GridSearch) Next(n int) []domain.Candidate {
	var out []domain.Candidate
	for ; n > 0 && g.next < g.total; n-- {
		out = append(out, g.s.at(g.next))
		g.next++
	}
	return out
}

func (g *GridSearch) Observe([]Evaluation) {}

func (g *GridSearch) Progress() (int, int) { return 0, 0 }
