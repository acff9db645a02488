package chart

import (
	"math"
	"sort"
	"strings"

	"github.com/dnldd/pulse/shared"
)

// buySide is the display token selecting the buy marker category. Any other
// side token renders in the sell category.
const buySide = "BUY"

// TradeMarker is one trade positioned on a chart's value axis.
type TradeMarker struct {
	// Ts is a unix millisecond timestamp.
	Ts int64
	// Value is the marker's position on the chart's value axis.
	Value float64
	// Side is the trade direction token as reported upstream.
	Side string
}

// Buy classifies the marker's side for display.
func (m *TradeMarker) Buy() bool {
	return strings.ToUpper(m.Side) == buySide
}

// AlignTradesToCandles places trades directly on a candle chart. A trade is
// kept when its price is finite and its timestamp falls within the candle
// range; trades outside the visible range are dropped, not clamped.
func AlignTradesToCandles(trades []shared.TradePoint, candles []shared.Candle) []TradeMarker {
	if len(candles) == 0 {
		return nil
	}

	minTs := candles[0].Ts
	maxTs := candles[len(candles)-1].Ts

	markers := make([]TradeMarker, 0, len(trades))
	for idx := range trades {
		trade := &trades[idx]
		if math.IsNaN(trade.Price) || math.IsInf(trade.Price, 0) {
			continue
		}
		if trade.Ts < minTs || trade.Ts > maxTs {
			continue
		}

		markers = append(markers, TradeMarker{
			Ts:    trade.Ts,
			Value: trade.Price,
			Side:  trade.Side,
		})
	}

	return markers
}

// AlignTradesToEquity places trades on the equity curve by locating the
// nearest sample at or before each trade's timestamp via binary search. The
// marker takes the matched sample's equity value, showing where the trade
// fell on the curve rather than its execution price. Trades with no
// preceding sample are dropped.
func AlignTradesToEquity(trades []shared.TradePoint, points []shared.EquityPoint) []TradeMarker {
	if len(points) == 0 {
		return nil
	}

	markers := make([]TradeMarker, 0, len(trades))
	for idx := range trades {
		trade := &trades[idx]

		// Samples with a timestamp at or before the trade form a prefix of
		// the ascending series.
		next := sort.Search(len(points), func(i int) bool {
			return points[i].Ts > trade.Ts
		})
		if next == 0 {
			continue
		}

		markers = append(markers, TradeMarker{
			Ts:    trade.Ts,
			Value: points[next-1].Equity,
			Side:  trade.Side,
		})
	}

	return markers
}
