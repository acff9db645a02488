package shared

import (
	"time"

	"github.com/tidwall/gjson"
)

// RunMetrics represents the latest metrics snapshot reported for a run.
type RunMetrics struct {
	RunID string
	// UpdatedAt is the server-side payload update time, zero when the server
	// has not recorded metrics yet.
	UpdatedAt time.Time
	// Payload is the raw metrics mapping. Its schema evolves with the engine,
	// so it is traversed field by field rather than decoded into a struct.
	Payload gjson.Result
}

// EquityPoint is one sample of account value at a point in time.
type EquityPoint struct {
	// Ts is a unix millisecond timestamp.
	Ts int64
	// Equity is the account value at Ts.
	Equity float64
	// Close is the underlying asset price at Ts, valid only when HasClose is set.
	Close    float64
	HasClose bool
}

// Price returns the chartable price of the point, preferring the asset close
// over the account equity when one was reported.
func (p *EquityPoint) Price() float64 {
	if p.HasClose {
		return p.Close
	}

	return p.Equity
}

// TradePoint is one executed trade event.
type TradePoint struct {
	// Ts is a unix millisecond timestamp.
	Ts int64
	// Side is the trade direction token as reported upstream. Case is
	// preserved here and only normalized for display.
	Side string
	// Price is the execution price.
	Price float64
	// Qty is the traded quantity, valid only when HasQty is set.
	Qty    float64
	HasQty bool
	// PNL is the realized profit and loss, valid only when HasPNL is set.
	PNL    float64
	HasPNL bool
}

// Candle is an open-high-low-close summary of price activity over one
// fixed-width time bucket.
type Candle struct {
	// Ts is the bucket start as a unix millisecond timestamp.
	Ts    int64
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// ChartPoint is an (x, y) pair, in data space before mapping and in pixel
// space after.
type ChartPoint struct {
	X float64
	Y float64
}
