package optimizer

import (
	"strategy-lab/internal/domain"
)

const maxDrawAttempts = 64

// RandomSearch samples grid points uniformly without repeats.
type RandomSearch struct {
	s      *sampler
	total  int
	issued int
}

// NewRandomSearch samples min(budget, grid size) distinct candidates.
func NewRandomSearch(space domain.ParameterSpace, budget int, seed int64) *RandomSearch {
	s := newSampler(space, seed)
	total := s.gridSize()
	if budget < total {
		total = budget
	}
	return &RandomSearch{s: s, total: total}
}

func (r *RandomSearch) Name() string { return domain.AlgorithmRandom }

func (r *RandomSearch) Total() int { return r.total }

func (r *RandomSearch) Next(n int) []domain.Candidate {
	var out []domain.Candidate
	for ; n > 0 && r.issued < r.total; n-- {
		c, ok := r.s.unique(r.s.random, maxDrawAttempts)
		if !ok {
			break
		}
		out = append(out, c)
		r.issued++
	}
	return out
}

func (r *RandomSearch) Observe([]Evaluation) {}

func (r *RandomSearch) Progress() (int, int) { return 0, 0 }
