package simulation

import (
	"math"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/idhash"
	"strategy-lab/internal/indicators"
	"strategy-lab/internal/strategy"
)

const msPerDay = int64(86_400_000)

// portfolio is the mutable state of one simulation run.
type portfolio struct {
	rules      *strategy.Rules
	scenarioID string
	candKey    string

	equity     float64 // initial capital plus realized pnl
	peakEquity float64
	halted     bool // drawdown circuit breaker tripped

	day         int64
	dayStart    float64
	dayRealized float64

	lossStreak    int
	cooldownUntil int64

	books  []*book
	now    int64
	trades []*domain.SimulatedTrade
}

func newPortfolio(rules *strategy.Rules, capital float64, scenarioID string, books []*book) *portfolio {
	return &portfolio{
		rules:      rules,
		books:      books,
		scenarioID: scenarioID,
		candKey:    rules.Candidate.Key(),
		equity:     capital,
		peakEquity: capital,
		day:        math.MinInt64,
	}
}

// startBar rolls the daily loss window.
func (p *portfolio) startBar(ts int64) {
	p.now = ts
	day := floorDiv(ts, msPerDay)
	if day != p.day {
		p.day = day
		p.dayStart = p.equity
		p.dayRealized = 0
	}
}

func (p *portfolio) processExits(b *book) {
	pos := b.position
	if pos == nil {
		return
	}
	bar := b.bar()
	if bar.TimestampMs <= pos.EntryTime {
		return
	}
	if d := p.rules.CheckExit(&pos.Position, b.signals, b.cursor); d != nil {
		p.close(b, d, bar)
	}
	if b.position != nil {
		p.rules.Advance(&b.position.Position, bar)
	}
}

func (p *portfolio) processPending(b *book) {
	o := b.pending
	if o == nil {
		return
	}
	bar := b.bar()
	if bar.TimestampMs <= o.placedAt {
		return
	}

	timeout := p.rules.OrderTimeoutMs
	expired := timeout > 0 && bar.TimestampMs-o.placedAt > timeout
	if expired {
		b.pending = nil
		return
	}

	long := o.direction == domain.DirectionLong
	var fill float64
	filled := false
	switch o.style {
	case strategy.EntryLimit:
		if long && bar.Low <= o.level {
			fill, filled = math.Min(bar.Open, o.level), true
		} else if !long && bar.High >= o.level {
			fill, filled = math.Max(bar.Open, o.level), true
		}
	default:
		if long && bar.High >= o.level {
			fill, filled = math.Max(bar.Open, o.level), true
		} else if !long && bar.Low <= o.level {
			fill, filled = math.Min(bar.Open, o.level), true
		}
	}

	if filled {
		b.pending = nil
		// Limit fills carry no slippage; stop entries fill like market orders.
		p.open(b, o.direction, fill, o.style != strategy.EntryLimit)
		return
	}
	// Without a timeout the order only works for the bar after placement.
	if timeout == 0 {
		b.pending = nil
	}
}

func (p *portfolio) processEntry(b *book) {
	if b.position != nil || b.pending != nil {
		return
	}
	dir := p.rules.EntrySignal(b.signals, b.cursor)
	if dir == "" {
		return
	}
	if !p.canOpen(b) {
		return
	}

	bar := b.bar()
	switch p.rules.EntryOrder {
	case strategy.EntryMarket:
		p.open(b, dir, bar.Close, true)
	case strategy.EntryLimit:
		b.pending = &pendingOrder{direction: dir, level: bar.Close, placedAt: bar.TimestampMs, style: strategy.EntryLimit}
	default:
		level := bar.High
		if dir == domain.DirectionShort {
			level = bar.Low
		}
		b.pending = &pendingOrder{direction: dir, level: level, placedAt: bar.TimestampMs, style: strategy.EntryStop}
	}
}

// canOpen applies portfolio gates that do not depend on order size.
func (p *portfolio) canOpen(b *book) bool {
	risk := p.rules.Config.RiskParameters

	if p.halted {
		return false
	}
	if p.now < p.cooldownUntil {
		return false
	}
	if risk.MaxDailyRiskPercent > 0 && p.dayStart > 0 && -p.dayRealized >= p.dayStart*risk.MaxDailyRiskPercent/100 {
		return false
	}
	if risk.MaxPositions > 0 {
		open := 0
		for _, other := range p.books {
			if other.position != nil || other.pending != nil {
				open++
			}
		}
		if open >= risk.MaxPositions {
			return false
		}
	}
	if risk.CorrelationThreshold != nil {
		mine := b.signals.ReturnsWindow(b.cursor, strategy.CorrelationWindow)
		for _, other := range p.books {
			if other == b || other.position == nil || other.cursor < 0 {
				continue
			}
			theirs := other.signals.ReturnsWindow(other.cursor, strategy.CorrelationWindow)
			n := min(len(mine), len(theirs))
			if n < 2 {
				continue
			}
			corr := indicators.Pearson(mine[len(mine)-n:], theirs[len(theirs)-n:])
			if corr > *risk.CorrelationThreshold {
				return false
			}
		}
	}
	return true
}

// sectorAllows checks sector exposure including the new notional.
func (p *portfolio) sectorAllows(b *book, notional float64) bool {
	limit := p.rules.Config.RiskParameters.MaxSectorExposurePercent
	if limit == nil {
		return true
	}
	exposure := notional
	for _, other := range p.books {
		if other.sector == b.sector {
			exposure += other.notional()
		}
	}
	return exposure <= p.equity*(*limit)/100
}

// open sizes and opens a position at price, applying entry slippage when slipped is set.
func (p *portfolio) open(b *book, dir string, price float64, slipped bool) {
	bar := b.bar()
	costs := p.rules.Costs
	atr := b.signals.ATRAt(b.cursor)

	fill := price
	if slipped {
		est := p.rules.SizePosition(p.equity, price, atr) * price
		if est <= 0 {
			return
		}
		fill = costs.EntryFill(price, dir, costs.SlippagePercent(est, bar))
	}
	if fill <= 0 {
		return
	}

	qty := p.rules.SizePosition(p.equity, fill, atr)
	if qty <= 0 {
		return
	}
	if costs.VolumeBased && bar.Volume > 0 && qty > bar.Volume {
		if !p.rules.AllowPartialFills() {
			return
		}
		qty = bar.Volume
		if qty*fill < p.rules.Config.OrderTypes.MinOrderSize {
			return
		}
	}
	if !p.sectorAllows(b, qty*fill) {
		return
	}

	b.position = &openPosition{
		Position: strategy.Position{
			Symbol:     b.symbol,
			Direction:  dir,
			EntryPrice: fill,
			EntryTime:  bar.TimestampMs,
			Quantity:   qty,
			EntryATR:   atr,
			Peak:       fill,
		},
		entryCommission: costs.Commission(qty * fill),
	}
}

// close books an exit decision as a trade.
func (p *portfolio) close(b *book, d *strategy.ExitDecision, bar *domain.Bar) {
	pos := b.position
	costs := p.rules.Costs

	fraction := math.Min(1, d.Fraction)
	qty := pos.Quantity
	if fraction < 1 {
		qty = pos.Quantity * fraction
	}

	exit := d.Price
	if !d.Limit {
		exit = costs.ExitFill(d.Price, pos.Direction, costs.SlippagePercent(qty*d.Price, bar))
	}

	entryComm := pos.entryCommission
	if fraction < 1 {
		entryComm = pos.entryCommission * fraction
	}
	total := entryComm + costs.Commission(qty*exit)

	trade := p.buildTrade(pos, exit, qty, bar.TimestampMs, total, d.Reason, fraction < 1)
	p.record(trade)

	if fraction < 1 {
		pos.Quantity -= qty
		pos.entryCommission -= entryComm
		pos.PartialDone = true
		pos.legs++
		return
	}
	b.position = nil
}

// closeAtEnd force-closes at the book's last close.
func (p *portfolio) closeAtEnd(b *book) {
	b.pending = nil
	if b.position == nil {
		return
	}
	last := b.lastBar()
	p.now = last.TimestampMs
	p.close(b, &strategy.ExitDecision{Reason: domain.ExitReasonEndOfData, Price: last.Close, Fraction: 1}, last)
}

func (p *portfolio) buildTrade(pos *openPosition, exit, qty float64, exitTime int64, costs float64, reason string, partial bool) *domain.SimulatedTrade {
	sign := domain.DirectionSign(pos.Direction)
	pnl := (exit-pos.EntryPrice)*qty*sign - costs

	notional := pos.EntryPrice * qty
	pnlPct := 0.0
	if notional > 0 {
		pnlPct = pnl / notional * 100
	}
	if !isFinite(pnl) {
		pnl = 0
	}
	if !isFinite(pnlPct) {
		pnlPct = 0
	}

	return &domain.SimulatedTrade{
		TradeID:    idhash.ComputeTradeID(p.rules.Config.Name, p.candKey, p.scenarioID, pos.Symbol, pos.EntryTime, pos.legs),
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exit,
		Quantity:   qty,
		EntryTime:  pos.EntryTime,
		ExitTime:   exitTime,
		PnL:        pnl,
		PnLPercent: pnlPct,
		Costs:      costs,
		ExitReason: reason,
		Partial:    partial,
	}
}

// record appends a trade and updates equity-driven gates.
func (p *portfolio) record(t *domain.SimulatedTrade) {
	p.trades = append(p.trades, t)
	p.equity += t.PnL
	p.dayRealized += t.PnL

	if p.equity > p.peakEquity {
		p.peakEquity = p.equity
	}
	if maxDD := p.rules.Config.RiskParameters.MaxDrawdownPercent; maxDD != nil && p.peakEquity > 0 {
		dd := (p.peakEquity - p.equity) / p.peakEquity * 100
		if dd >= *maxDD {
			p.halted = true
		}
	}

	limit := p.rules.Params.ConsecutiveLossLimit
	if limit == 0 {
		return
	}
	if t.PnL < 0 {
		p.lossStreak++
	} else {
		p.lossStreak = 0
	}
	if p.lossStreak >= limit {
		p.cooldownUntil = t.ExitTime + p.rules.Params.CooldownMs
		p.lossStreak = 0
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
