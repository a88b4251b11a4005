package optimizer

import (
	"math"

	"strategy-lab/internal/domain"
)

const (
	minWarmup        = 5
	explorationRate  = 0.2
	initialSigmaFrac = 0.25
)

// BayesianSearch is a best-neighbourhood heuristic, not a posterior model.
//
// After a random warm-up of max(5, budget/5) samples, each proposal perturbs the
// best candidate so far with Gaussian noise whose width shrinks linearly from a
// quarter of each range to one step. One proposal in five is uniform instead.
type BayesianSearch struct {
	s      *sampler
	total  int
	warmup int
	issued int
	best   *Evaluation
}

// NewBayesianSearch proposes min(budget, grid size) distinct candidates.
func NewBayesianSearch(space domain.ParameterSpace, budget int, seed int64) *BayesianSearch {
	s := newSampler(space, seed)
	total := s.gridSize()
	if budget < total {
		total = budget
	}
	warmup := budget / 5
	if warmup < minWarmup {
		warmup = minWarmup
	}
	if warmup > total {
		warmup = total
	}
	return &BayesianSearch{s: s, total: total, warmup: warmup}
}

func (b *BayesianSearch) Name() string { return domain.AlgorithmBayesian }

func (b *BayesianSearch) Total() int { return b.total }

func (b *BayesianSearch) Next(n int) []domain.Candidate {
	var out []domain.Candidate
	for ; n > 0 && b.issued < b.total; n-- {
		gen := b.s.random
		if b.issued >= b.warmup && b.best != nil && b.s.rng.Float64() >= explorationRate {
			gen = b.perturb
		}
		c, ok := b.s.unique(gen, maxDrawAttempts)
		if !ok {
			break
		}
		out = append(out, c)
		b.issued++
	}
	return out
}

func (b *BayesianSearch) Observe(evals []Evaluation) {
	for i := range evals {
		if b.best == nil || better(&evals[i], b.best) {
			e := evals[i]
			b.best = &e
		}
	}
}

func (b *BayesianSearch) Progress() (int, int) { return 0, 0 }

func (b *BayesianSearch) perturb() domain.Candidate {
	progress := float64(b.issued) / float64(b.total)
	c := b.best.Candidate.Clone()
	for _, p := range b.s.params {
		sigma := math.Max(p.Span()*initialSigmaFrac*(1-progress), p.Step)
		c[p.Name] = p.Quantize(c[p.Name] + b.s.rng.NormFloat64()*sigma)
	}
	return c
}
