package simulation

import (
	"strategy-lab/internal/domain"
	"strategy-lab/internal/strategy"
)

// book tracks one symbol during a run.
type book struct {
	symbol  string
	sector  string
	signals *strategy.Signals
	cursor  int // index of the current bar, -1 before the first

	position *openPosition
	pending  *pendingOrder
}

// openPosition wraps strategy state with bookkeeping the simulator needs.
type openPosition struct {
	strategy.Position
	entryCommission float64 // unallocated entry commission
	legs            int
}

// pendingOrder is a resting limit or stop entry.
type pendingOrder struct {
	direction string
	level     float64
	placedAt  int64
	style     string // strategy.EntryLimit | strategy.EntryStop
}

// advanceTo moves the cursor to the bar at ts and reports whether one exists.
func (b *book) advanceTo(ts int64) bool {
	next := b.cursor + 1
	if next < len(b.signals.Bars) && b.signals.Bars[next].TimestampMs == ts {
		b.cursor = next
		return true
	}
	return false
}

func (b *book) bar() *domain.Bar {
	return b.signals.Bars[b.cursor]
}

func (b *book) lastBar() *domain.Bar {
	return b.signals.Bars[len(b.signals.Bars)-1]
}

func (b *book) notional() float64 {
	if b.position == nil {
		return 0
	}
	return b.position.EntryPrice * b.position.Quantity
}
