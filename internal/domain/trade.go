package domain

// SimulatedTrade is one closed (or force-closed) position produced by the simulator.
type SimulatedTrade struct {
	TradeID    string  `json:"tradeId"`   // deterministic hash
	Symbol     string  `json:"symbol"`    // instrument
	Direction  string  `json:"direction"` // "long" | "short"
	EntryPrice float64 `json:"entryPrice"`
	ExitPrice  float64 `json:"exitPrice"`
	Quantity   float64 `json:"quantity"`
	EntryTime  int64   `json:"entryTime"` // Unix ms
	ExitTime   int64   `json:"exitTime"`  // Unix ms, >= EntryTime
	PnL        float64 `json:"pnl"`       // signed currency, after costs
	PnLPercent float64 `json:"pnlPercent"`
	Costs      float64 `json:"costs"` // commission paid on both sides
	ExitReason string  `json:"exitReason"`
	Partial    bool    `json:"partial,omitempty"` // scale-out leg of a larger position
}

// Directions
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Exit reason codes
const (
	ExitReasonStopLoss     = "STOP_LOSS"
	ExitReasonTakeProfit   = "TAKE_PROFIT"
	ExitReasonTrailingStop = "TRAILING_STOP"
	ExitReasonBreakEven    = "BREAK_EVEN"
	ExitReasonMaxHoldTime  = "MAX_HOLD_TIME"
	ExitReasonExitSignal   = "EXIT_SIGNAL"
	ExitReasonPartialExit  = "PARTIAL_EXIT"
	ExitReasonEndOfData    = "END_OF_DATA"
)

// DirectionSign returns +1 for long and -1 for short.
func DirectionSign(direction string) float64 {
	if direction == DirectionShort {
		return -1
	}
	return 1
}

// Notional returns entry price times quantity.
func (t *SimulatedTrade) Notional() float64 {
	return t.EntryPrice * t.Quantity
}

// IsWin reports whether the trade made money after costs.
func (t *SimulatedTrade) IsWin() bool {
	return t.PnL > 0
}

// IsLoss reports whether the trade lost money after costs.
func (t *SimulatedTrade) IsLoss() bool {
	return t.PnL < 0
}
