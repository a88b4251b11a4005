package domain

// RiskConstraints filters optimization candidates. Nil fields are not enforced.
type RiskConstraints struct {
	MaxDrawdownPercent   *float64 `json:"maxDrawdownPercent,omitempty" yaml:"maxDrawdownPercent,omitempty"`
	MinWinRate           *float64 `json:"minWinRate,omitempty" yaml:"minWinRate,omitempty"`
	MinSharpeRatio       *float64 `json:"minSharpeRatio,omitempty" yaml:"minSharpeRatio,omitempty"`
	MaxConsecutiveLosses *int     `json:"maxConsecutiveLosses,omitempty" yaml:"maxConsecutiveLosses,omitempty"`
}
