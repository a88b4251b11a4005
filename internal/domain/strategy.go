package domain

// StrategyConfig describes a complete trading strategy as produced by the builder.
// Numeric pointer fields are optional; presence is checked by Validate and by the
// strategy compiler for rules that reference them.
type StrategyConfig struct {
	Name            string          `json:"name" yaml:"name"`
	MarketSelection MarketSelection `json:"marketSelection" yaml:"marketSelection"`
	EntryConditions EntryConditions `json:"entryConditions" yaml:"entryConditions"`
	ExitRules       ExitRules       `json:"exitRules" yaml:"exitRules"`
	RiskParameters  RiskParameters  `json:"riskParameters" yaml:"riskParameters"`
	OrderTypes      OrderTypes      `json:"orderTypes" yaml:"orderTypes"`
}

// MarketSelection selects the traded universe.
type MarketSelection struct {
	AssetClass         string            `json:"assetClass" yaml:"assetClass"`
	PrimaryTimeframe   string            `json:"primaryTimeframe" yaml:"primaryTimeframe"`
	SecondaryTimeframe string            `json:"secondaryTimeframe,omitempty" yaml:"secondaryTimeframe,omitempty"`
	Symbols            []string          `json:"symbols" yaml:"symbols"`
	SymbolSectors      map[string]string `json:"symbolSectors,omitempty" yaml:"symbolSectors,omitempty"` // symbol -> sector
}

// EntryConditions decides when a position is opened.
type EntryConditions struct {
	EntryType           string   `json:"entryType" yaml:"entryType"`
	Indicators          []string `json:"indicators" yaml:"indicators"`
	PriceActionPatterns []string `json:"priceActionPatterns,omitempty" yaml:"priceActionPatterns,omitempty"`
	SignalMode          string   `json:"signalMode,omitempty" yaml:"signalMode,omitempty"` // "all" (default) | "any"

	MinVolume *float64 `json:"minVolume,omitempty" yaml:"minVolume,omitempty"`
	MinPrice  *float64 `json:"minPrice,omitempty" yaml:"minPrice,omitempty"`
	RSILower  *float64 `json:"rsiLower,omitempty" yaml:"rsiLower,omitempty"`
	RSIUpper  *float64 `json:"rsiUpper,omitempty" yaml:"rsiUpper,omitempty"`
}

// ExitRules decides when a position is closed. Percentages are in percent units (5 = 5%).
type ExitRules struct {
	PrimaryExitType string   `json:"primaryExitType" yaml:"primaryExitType"`
	StopLossType    string   `json:"stopLossType" yaml:"stopLossType"`
	TrailingMethod  string   `json:"trailingMethod,omitempty" yaml:"trailingMethod,omitempty"`
	ExitConditions  []string `json:"exitConditions,omitempty" yaml:"exitConditions,omitempty"`

	TakeProfitPercent  *float64 `json:"takeProfitPercent,omitempty" yaml:"takeProfitPercent,omitempty"`
	StopLossPercent    *float64 `json:"stopLossPercent,omitempty" yaml:"stopLossPercent,omitempty"`
	TrailingDistance   *float64 `json:"trailingDistance,omitempty" yaml:"trailingDistance,omitempty"`
	MaxHoldTimeHours   *float64 `json:"maxHoldTimeHours,omitempty" yaml:"maxHoldTimeHours,omitempty"`
	PartialExitPercent *float64 `json:"partialExitPercent,omitempty" yaml:"partialExitPercent,omitempty"`
	BreakEvenTrigger   *float64 `json:"breakEvenTrigger,omitempty" yaml:"breakEvenTrigger,omitempty"`
}

// RiskParameters bounds position sizing and portfolio exposure.
type RiskParameters struct {
	PositionSizingMethod string   `json:"positionSizingMethod" yaml:"positionSizingMethod"`
	MaxPositionSize      float64  `json:"maxPositionSize" yaml:"maxPositionSize"` // notional, currency
	MaxDailyRiskPercent  float64  `json:"maxDailyRiskPercent" yaml:"maxDailyRiskPercent"`
	MaxPositions         int      `json:"maxPositions" yaml:"maxPositions"`
	RiskMetrics          []string `json:"riskMetrics,omitempty" yaml:"riskMetrics,omitempty"`

	PortfolioRiskPercent     *float64 `json:"portfolioRiskPercent,omitempty" yaml:"portfolioRiskPercent,omitempty"`
	MaxDrawdownPercent       *float64 `json:"maxDrawdownPercent,omitempty" yaml:"maxDrawdownPercent,omitempty"`
	MaxSectorExposurePercent *float64 `json:"maxSectorExposurePercent,omitempty" yaml:"maxSectorExposurePercent,omitempty"`
	ConsecutiveLossLimit     *int     `json:"consecutiveLossLimit,omitempty" yaml:"consecutiveLossLimit,omitempty"`
	CooldownPeriodHours      *float64 `json:"cooldownPeriodHours,omitempty" yaml:"cooldownPeriodHours,omitempty"`
	VolatilityMultiplier     *float64 `json:"volatilityMultiplier,omitempty" yaml:"volatilityMultiplier,omitempty"`
	CorrelationThreshold     *float64 `json:"correlationThreshold,omitempty" yaml:"correlationThreshold,omitempty"`
}

// OrderTypes configures order placement and execution costs.
type OrderTypes struct {
	EnabledOrderTypes   []string `json:"enabledOrderTypes" yaml:"enabledOrderTypes"`
	OrderTimeoutSeconds int64    `json:"orderTimeoutSeconds" yaml:"orderTimeoutSeconds"`
	ExecutionSettings   []string `json:"executionSettings,omitempty" yaml:"executionSettings,omitempty"`
	SlippageSettings    []string `json:"slippageSettings,omitempty" yaml:"slippageSettings,omitempty"`
	MinOrderSize        float64  `json:"minOrderSize" yaml:"minOrderSize"`
	MaxOrderSize        float64  `json:"maxOrderSize" yaml:"maxOrderSize"`
	CommissionPercent   float64  `json:"commissionPercent,omitempty" yaml:"commissionPercent,omitempty"`

	MaxSlippagePercent *float64 `json:"maxSlippagePercent,omitempty" yaml:"maxSlippagePercent,omitempty"`
}

// Entry types
const (
	EntryTypeLong      = "long"
	EntryTypeShort     = "short"
	EntryTypeLongShort = "long_short"
)

// Signal modes
const (
	SignalModeAll = "all"
	SignalModeAny = "any"
)

// Indicators
const (
	IndicatorRSI         = "RSI"
	IndicatorSMACross    = "SMA_CROSS"
	IndicatorEMATrend    = "EMA_TREND"
	IndicatorMACD        = "MACD"
	IndicatorBollinger   = "BOLLINGER"
	IndicatorVolumeSpike = "VOLUME_SPIKE"
)

// Price action patterns
const (
	PatternBreakout  = "BREAKOUT"
	PatternEngulfing = "ENGULFING"
	PatternHammer    = "HAMMER"
	PatternInsideBar = "INSIDE_BAR"
)

// Primary exit types
const (
	ExitTypeTakeProfit   = "take_profit"
	ExitTypeTrailingStop = "trailing_stop"
	ExitTypeTimeBased    = "time_based"
	ExitTypeSignal       = "signal"
)

// Stop loss types
const (
	StopLossFixed    = "fixed"
	StopLossATR      = "atr"
	StopLossTrailing = "trailing"
)

// Trailing methods
const (
	TrailingPercent = "percent"
	TrailingATR     = "atr"
)

// Exit conditions
const (
	ExitConditionRSIExtreme     = "RSI_EXTREME"
	ExitConditionMACross        = "MA_CROSS"
	ExitConditionOppositeSignal = "OPPOSITE_SIGNAL"
)

// Position sizing methods
const (
	SizingFixed         = "fixed"
	SizingPercentEquity = "percent_equity"
	SizingRiskBased     = "risk_based"
	SizingVolatility    = "volatility"
)

// Risk metrics
const (
	RiskMetricSharpe      = "SHARPE"
	RiskMetricSortino     = "SORTINO"
	RiskMetricMaxDrawdown = "MAX_DRAWDOWN"
	RiskMetricVaR         = "VAR"
	RiskMetricExpectancy  = "EXPECTANCY"
)

// Order types
const (
	OrderTypeMarket       = "market"
	OrderTypeLimit        = "limit"
	OrderTypeStop         = "stop"
	OrderTypeStopLimit    = "stop_limit"
	OrderTypeTrailingStop = "trailing_stop"
)

// Slippage models
const (
	SlippageFixed       = "fixed"
	SlippageVolumeBased = "volume_based"
)

// Execution settings
const (
	ExecutionAllowPartialFills = "allow_partial_fills"
	ExecutionReduceOnlyExits   = "reduce_only_exits"
)

// HasIndicator reports whether the entry conditions select the indicator.
func (e EntryConditions) HasIndicator(name string) bool {
	return contains(e.Indicators, name)
}

// HasPattern reports whether the entry conditions select the pattern.
func (e EntryConditions) HasPattern(name string) bool {
	return contains(e.PriceActionPatterns, name)
}

// HasCondition reports whether the exit rules include the exit condition.
func (x ExitRules) HasCondition(name string) bool {
	return contains(x.ExitConditions, name)
}

// Enabled reports whether the order type is enabled.
func (o OrderTypes) Enabled(orderType string) bool {
	return contains(o.EnabledOrderTypes, orderType)
}

// HasSlippageSetting reports whether the slippage model is selected.
func (o OrderTypes) HasSlippageSetting(name string) bool {
	return contains(o.SlippageSettings, name)
}

// Sector returns the configured sector for a symbol, or the symbol itself when unmapped.
func (m MarketSelection) Sector(symbol string) string {
	if s, ok := m.SymbolSectors[symbol]; ok && s != "" {
		return s
	}
	return symbol
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
