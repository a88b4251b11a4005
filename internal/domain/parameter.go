package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Tunable parameter names understood by the strategy compiler.
const (
	ParamStopLossPercent        = "stopLossPercent"
	ParamTakeProfitPercent      = "takeProfitPercent"
	ParamTrailingDistance       = "trailingDistance"
	ParamMaxHoldTimeHours       = "maxHoldTimeHours"
	ParamPositionSizeMultiplier = "positionSizeMultiplier"
	ParamPortfolioRiskPercent   = "portfolioRiskPercent"
	ParamRSILower               = "rsiLower"
	ParamRSIUpper               = "rsiUpper"
	ParamBreakEvenTrigger       = "breakEvenTrigger"
	ParamPartialExitPercent     = "partialExitPercent"
)

var tunableParams = map[string]struct{}{
	ParamStopLossPercent:        {},
	ParamTakeProfitPercent:      {},
	ParamTrailingDistance:       {},
	ParamMaxHoldTimeHours:       {},
	ParamPositionSizeMultiplier: {},
	ParamPortfolioRiskPercent:   {},
	ParamRSILower:               {},
	ParamRSIUpper:               {},
	ParamBreakEvenTrigger:       {},
	ParamPartialExitPercent:     {},
}

// IsTunable reports whether name is a known tunable parameter.
func IsTunable(name string) bool {
	_, ok := tunableParams[name]
	return ok
}

// gridEpsilon absorbs floating point error when counting steps.
const gridEpsilon = 1e-9

// MaxGridSize bounds the number of grid points of one parameter and of the
// whole space, so counts and grid indexes always fit in an int.
const MaxGridSize = math.MaxInt32

// ParameterRange is an inclusive numeric range with a fixed step.
type ParameterRange struct {
	Name    string  `json:"name" yaml:"name"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Step    float64 `json:"step" yaml:"step"`
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Default float64 `json:"default" yaml:"default"` // value used when disabled
}

// Count returns floor((max-min)/step)+1. It is only meaningful for ranges
// that passed ParameterSpace.Validate.
func (p ParameterRange) Count() int {
	n := p.count()
	if n > MaxGridSize {
		return MaxGridSize
	}
	return int(n)
}

func (p ParameterRange) count() float64 {
	if p.Step <= 0 || p.Max < p.Min {
		return 0
	}
	steps := (p.Max - p.Min) / p.Step
	return math.Floor(steps+gridEpsilon*math.Max(1, steps)) + 1
}

// Value returns the i-th grid value, clamped to Max.
func (p ParameterRange) Value(i int) float64 {
	v := p.Min + float64(i)*p.Step
	v = math.Round(v*1e9) / 1e9
	if v > p.Max {
		v = p.Max
	}
	return v
}

// Quantize snaps v to the nearest grid value within bounds.
func (p ParameterRange) Quantize(v float64) float64 {
	n := p.Count()
	if n == 0 {
		return p.Min
	}
	i := int(math.Round((v - p.Min) / p.Step))
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	return p.Value(i)
}

// Span returns Max - Min.
func (p ParameterRange) Span() float64 {
	return p.Max - p.Min
}

// ParameterSpace is an ordered set of parameter ranges.
// The first parameter varies slowest during grid enumeration.
type ParameterSpace struct {
	Parameters []ParameterRange `json:"parameters" yaml:"parameters"`
}

// Validate checks bounds, steps and names, and that neither a single
// parameter nor the whole grid exceeds MaxGridSize points.
func (s ParameterSpace) Validate() error {
	seen := make(map[string]struct{}, len(s.Parameters))
	size := 1.0
	for _, p := range s.Parameters {
		field := "parameterSpace." + p.Name
		if p.Name == "" {
			return Missing("parameterSpace.name")
		}
		if !IsTunable(p.Name) {
			return NewValidationError(field, "unknown parameter")
		}
		if _, dup := seen[p.Name]; dup {
			return NewValidationError(field, "duplicate parameter")
		}
		seen[p.Name] = struct{}{}
		if !p.Enabled {
			continue
		}
		if p.Max < p.Min {
			return NewValidationError(field, fmt.Sprintf("max %v < min %v", p.Max, p.Min))
		}
		if p.Step <= 0 {
			return NewValidationError(field, fmt.Sprintf("step %v must be > 0", p.Step))
		}
		n := p.count()
		if !(n <= MaxGridSize) {
			return NewValidationError(field, fmt.Sprintf("%v grid points exceed the limit of %d", n, MaxGridSize))
		}
		size *= n
		if size > MaxGridSize {
			return NewValidationError(field, fmt.Sprintf("parameter space exceeds %d grid points", MaxGridSize))
		}
	}
	return nil
}

// Enabled returns the enabled parameters in declaration order.
func (s ParameterSpace) Enabled() []ParameterRange {
	out := make([]ParameterRange, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// GridSize returns the product of Count over enabled parameters.
// An empty space has exactly one candidate (all defaults).
func (s ParameterSpace) GridSize() int {
	size := 1
	for _, p := range s.Enabled() {
		size *= p.Count()
	}
	return size
}

// Fixed returns a candidate holding the default of every disabled parameter.
func (s ParameterSpace) Fixed() Candidate {
	c := make(Candidate)
	for _, p := range s.Parameters {
		if !p.Enabled {
			c[p.Name] = p.Default
		}
	}
	return c
}

// Candidate is one point in a ParameterSpace. Treat as immutable once built.
type Candidate map[string]float64

// Get returns the value for name and whether it is set.
func (c Candidate) Get(name string) (float64, bool) {
	v, ok := c[name]
	return v, ok
}

// Clone returns a copy.
func (c Candidate) Clone() Candidate {
	out := make(Candidate, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Merge returns a copy of c with values from other layered on top.
func (c Candidate) Merge(other Candidate) Candidate {
	out := c.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Key returns a canonical string: name=value pairs sorted by name.
func (c Candidate) Key() string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + "=" + strconv.FormatFloat(c[k], 'g', -1, 64)
	}
	return strings.Join(parts, "|")
}
