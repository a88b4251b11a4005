package optimizer

import (
	"sort"

	"strategy-lab/internal/domain"
)

const tournamentSize = 3

// GeneticSearch evolves a population over a fixed number of generations.
//
// Generation 1 is a random population. Each later generation keeps the
// EliteCount best of the previous one without re-evaluating them and fills the
// rest with children: tournament selection, uniform crossover, per-gene mutation.
type GeneticSearch struct {
	s *sampler

	population  int
	generations int
	elite       int
	mutation    float64
	crossover   float64

	generation int
	queue      []domain.Candidate
	current    []Evaluation // scored members of the current generation
}

// NewGeneticSearch creates a genetic search. Unset genetic settings take their defaults.
func NewGeneticSearch(space domain.ParameterSpace, settings domain.OptimizationSettings) *GeneticSearch {
	settings.Algorithm = domain.AlgorithmGenetic
	settings = settings.WithDefaults()
	g := &GeneticSearch{
		s:           newSampler(space, settings.Seed),
		population:  settings.PopulationSize,
		generations: settings.Generations,
		elite:       settings.Elites(),
		mutation:    settings.Mutation(),
		crossover:   settings.Crossover(),
		generation:  1,
	}
	for i := 0; i < g.population; i++ {
		c, ok := g.s.unique(g.s.random, maxDrawAttempts)
		if !ok {
			c = g.s.random()
		}
		g.queue = append(g.queue, c)
	}
	return g
}

func (g *GeneticSearch) Name() string { return domain.AlgorithmGenetic }

// Total counts proposals: the first population plus the children of every later generation.
func (g *GeneticSearch) Total() int {
	return g.population + (g.generations-1)*(g.population-g.elite)
}

func (g *GeneticSearch) Next(n int) []domain.Candidate {
	if n > len(g.queue) {
		n = len(g.queue)
	}
	out := g.queue[:n:n]
	g.queue = g.queue[n:]
	return out
}

func (g *GeneticSearch) Observe(evals []Evaluation) {
	g.current = append(g.current, evals...)
	if len(g.queue) > 0 || len(g.current) < g.population {
		return
	}
	if g.generation >= g.generations {
		return
	}
	g.breed()
}

func (g *GeneticSearch) Progress() (int, int) {
	return g.generation, g.generations
}

func (g *GeneticSearch) breed() {
	ranked := make([]Evaluation, len(g.current))
	copy(ranked, g.current)
	sort.SliceStable(ranked, func(i, j int) bool {
		return better(&ranked[i], &ranked[j])
	})

	children := make([]domain.Candidate, 0, g.population-g.elite)
	for len(children) < g.population-g.elite {
		children = append(children, g.child(ranked))
	}

	g.current = append([]Evaluation(nil), ranked[:g.elite]...)
	g.queue = children
	g.generation++
}

// child breeds one unseen offspring when possible.
func (g *GeneticSearch) child(ranked []Evaluation) domain.Candidate {
	var c domain.Candidate
	for i := 0; i < maxDrawAttempts; i++ {
		c = g.offspring(ranked)
		if !g.s.isSeen(c) {
			g.s.mark(c)
			return c
		}
	}
	if fresh, ok := g.s.fallback(); ok {
		return fresh
	}
	return c
}

func (g *GeneticSearch) offspring(ranked []Evaluation) domain.Candidate {
	a := g.tournament(ranked)
	b := g.tournament(ranked)

	c := a.Candidate.Clone()
	if g.s.rng.Float64() < g.crossover {
		for _, p := range g.s.params {
			if g.s.rng.Intn(2) == 1 {
				c[p.Name] = b.Candidate[p.Name]
			}
		}
	}
	for _, p := range g.s.params {
		if g.s.rng.Float64() < g.mutation {
			c[p.Name] = p.Value(g.s.rng.Intn(p.Count()))
		}
	}
	return c
}

func (g *GeneticSearch) tournament(ranked []Evaluation) *Evaluation {
	best := &ranked[g.s.rng.Intn(len(ranked))]
	for i := 1; i < tournamentSize; i++ {
		e := &ranked[g.s.rng.Intn(len(ranked))]
		if better(e, best) {
			best = e
		}
	}
	return best
}
