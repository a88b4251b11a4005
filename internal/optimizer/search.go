// Package optimizer explores a parameter space for a strategy and ranks the results.
//
// A Search proposes candidates; the Optimizer evaluates them (simulate, score,
// filter) and keeps a Leaderboard. Searches are deterministic for a fixed seed.
package optimizer

import (
	"math/rand"
	"time"

	"strategy-lab/internal/domain"
)

// Evaluation is the scored outcome of one candidate.
type Evaluation struct {
	Seq           int // proposal order, 1-based
	Generation    int
	Candidate     domain.Candidate
	Metrics       domain.PerformanceMetrics
	Accepted      bool
	RejectReasons []string
	Warnings      []string
	Trades        int
	Duration      time.Duration
}

// Search proposes candidates and learns from their evaluations.
//
// The optimizer always calls Observe with the results of one Next batch before
// calling Next again. Next returns an empty slice when the search is exhausted.
type Search interface {
	Name() string
	Total() int
	Next(n int) []domain.Candidate
	Observe(evals []Evaluation)
	// Progress returns the current generation and the generation count.
	// Searches without generations return 0, 0.
	Progress() (generation, generations int)
}

// NewSearch builds the search selected by settings. Settings must already carry defaults.
func NewSearch(space domain.ParameterSpace, settings domain.OptimizationSettings) (Search, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	switch settings.Algorithm {
	case domain.AlgorithmGrid:
		return NewGridSearch(space), nil
	case domain.AlgorithmRandom:
		return NewRandomSearch(space, settings.SampleBudget, settings.Seed), nil
	case domain.AlgorithmGenetic:
		return NewGeneticSearch(space, settings), nil
	case domain.AlgorithmBayesian:
		return NewBayesianSearch(space, settings.SampleBudget, settings.Seed), nil
	}
	return nil, domain.NewValidationError("settings.algorithm", "unknown value "+settings.Algorithm)
}

// sampler draws grid-aligned candidates and tracks which were already proposed.
type sampler struct {
	params []domain.ParameterRange // enabled, declaration order
	base   domain.Candidate        // defaults of disabled parameters
	rng    *rand.Rand
	seen   map[string]struct{}
	scan   int // next grid index tried by fallback()
}

func newSampler(space domain.ParameterSpace, seed int64) *sampler {
	return &sampler{
		params: space.Enabled(),
		base:   space.Fixed(),
		rng:    rand.New(rand.NewSource(seed)), // #nosec G404 -- reproducible search, not security
		seen:   make(map[string]struct{}),
	}
}

func (s *sampler) gridSize() int {
	size := 1
	for _, p := range s.params {
		size *= p.Count()
	}
	return size
}

// at decodes a grid index; the last parameter varies fastest.
func (s *sampler) at(index int) domain.Candidate {
	c := s.base.Clone()
	for j := len(s.params) - 1; j >= 0; j-- {
		p := s.params[j]
		n := p.Count()
		c[p.Name] = p.Value(index % n)
		index /= n
	}
	return c
}

// random picks a grid value per parameter uniformly.
func (s *sampler) random() domain.Candidate {
	c := s.base.Clone()
	for _, p := range s.params {
		c[p.Name] = p.Value(s.rng.Intn(p.Count()))
	}
	return c
}

func (s *sampler) isSeen(c domain.Candidate) bool {
	_, ok := s.seen[c.Key()]
	return ok
}

func (s *sampler) mark(c domain.Candidate) {
	s.seen[c.Key()] = struct{}{}
}

// unique tries gen up to attempts times for an unseen candidate, then falls
// back to the first unseen grid point. ok is false once the grid is exhausted.
func (s *sampler) unique(gen func() domain.Candidate, attempts int) (domain.Candidate, bool) {
	for i := 0; i < attempts; i++ {
		c := gen()
		if !s.isSeen(c) {
			s.mark(c)
			return c, true
		}
	}
	return s.fallback()
}

func (s *sampler) fallback() (domain.Candidate, bool) {
	for size := s.gridSize(); s.scan < size; s.scan++ {
		c := s.at(s.scan)
		if !s.isSeen(c) {
			s.mark(c)
			return c, true
		}
	}
	return nil, false
}

// better orders evaluations for selection: accepted before rejected, then by ranking key.
func better(a, b *Evaluation) bool {
	if a.Accepted != b.Accepted {
		return a.Accepted
	}
	return rankLess(&a.Metrics, &b.Metrics, a.Seq, b.Seq)
}
