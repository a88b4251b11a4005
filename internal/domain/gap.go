package domain

import "fmt"

// DataGapError records a symbol that had no price data. It is a warning, not a failure.
type DataGapError struct {
	Symbol string
	Reason string
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("no price data for %s: %s", e.Symbol, e.Reason)
}
