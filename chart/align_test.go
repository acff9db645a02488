package chart

import (
	"math"
	"testing"

	"github.com/dnldd/pulse/shared"
	"github.com/peterldowns/testy/assert"
)

func TestAlignTradesToCandles(t *testing.T) {
	candles := []shared.Candle{
		{Ts: 60_000, Open: 100, High: 110, Low: 95, Close: 105},
		{Ts: 120_000, Open: 105, High: 115, Low: 100, Close: 110},
	}

	trades := []shared.TradePoint{
		{Ts: 0, Side: "BUY", Price: 98},        // before the visible range
		{Ts: 60_000, Side: "buy", Price: 101},  // on the range start
		{Ts: 90_000, Side: "SELL", Price: 108}, // inside the range
		{Ts: 120_000, Side: "SELL", Price: 112},
		{Ts: 180_000, Side: "BUY", Price: 111},        // past the visible range
		{Ts: 90_000, Side: "BUY", Price: math.NaN()},  // non-finite price
		{Ts: 90_000, Side: "BUY", Price: math.Inf(1)}, // non-finite price
	}

	// Ensure trades outside the candle range and trades with non-finite
	// prices are dropped, and kept trades take their own price.
	markers := AlignTradesToCandles(trades, candles)
	assert.Equal(t, len(markers), 3)
	assert.Equal(t, markers[0], TradeMarker{Ts: 60_000, Value: 101, Side: "buy"})
	assert.Equal(t, markers[1], TradeMarker{Ts: 90_000, Value: 108, Side: "SELL"})
	assert.Equal(t, markers[2], TradeMarker{Ts: 120_000, Value: 112, Side: "SELL"})

	// Ensure an empty candle series yields no markers.
	assert.Equal(t, len(AlignTradesToCandles(trades, nil)), 0)
}

func TestAlignTradesToEquity(t *testing.T) {
	points := []shared.EquityPoint{
		{Ts: 60_000, Equity: 100},
		{Ts: 120_000, Equity: 110},
		{Ts: 120_000, Equity: 112},
		{Ts: 180_000, Equity: 90},
	}

	tests := []struct {
		name      string
		trade     shared.TradePoint
		wantDrop  bool
		wantValue float64
	}{
		{
			name:     "trade before the first sample is dropped",
			trade:    shared.TradePoint{Ts: 10_000, Side: "BUY", Price: 1},
			wantDrop: true,
		},
		{
			name:      "trade on a sample matches it",
			trade:     shared.TradePoint{Ts: 60_000, Side: "BUY", Price: 1},
			wantValue: 100,
		},
		{
			name:      "trade between samples matches the preceding one",
			trade:     shared.TradePoint{Ts: 150_000, Side: "SELL", Price: 1},
			wantValue: 112,
		},
		{
			name:      "trade on duplicate timestamps matches a tied sample",
			trade:     shared.TradePoint{Ts: 120_000, Side: "SELL", Price: 1},
			wantValue: 112,
		},
		{
			name:      "trade after the last sample matches it",
			trade:     shared.TradePoint{Ts: 500_000, Side: "BUY", Price: 1},
			wantValue: 90,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			markers := AlignTradesToEquity([]shared.TradePoint{test.trade}, points)
			if test.wantDrop {
				assert.Equal(t, len(markers), 0)
				return
			}

			assert.Equal(t, len(markers), 1)
			// The marker takes the matched sample's equity, not the trade's
			// own price.
			assert.Equal(t, markers[0].Value, test.wantValue)
		})
	}

	// Ensure an empty equity series drops every trade.
	trades := []shared.TradePoint{{Ts: 60_000, Side: "BUY", Price: 1}}
	assert.Equal(t, len(AlignTradesToEquity(trades, nil)), 0)

	// Ensure no trades yields no markers.
	assert.Equal(t, len(AlignTradesToEquity(nil, points)), 0)
}

func TestAlignTradesToEquityMonotonic(t *testing.T) {
	points := []shared.EquityPoint{
		{Ts: 0, Equity: 1},
		{Ts: 60_000, Equity: 2},
		{Ts: 120_000, Equity: 3},
		{Ts: 180_000, Equity: 4},
	}

	// Ensure later trades never match an earlier sample than earlier trades.
	trades := []shared.TradePoint{
		{Ts: 30_000, Side: "BUY", Price: 1},
		{Ts: 60_000, Side: "BUY", Price: 1},
		{Ts: 170_000, Side: "BUY", Price: 1},
		{Ts: 400_000, Side: "BUY", Price: 1},
	}
	markers := AlignTradesToEquity(trades, points)
	assert.Equal(t, len(markers), len(trades))
	for idx := 1; idx < len(markers); idx++ {
		assert.LessThanOrEqual(t, markers[idx-1].Value, markers[idx].Value)
	}
}

func TestTradeMarkerBuy(t *testing.T) {
	tests := []struct {
		name string
		side string
		want bool
	}{
		{
			name: "uppercase buy",
			side: "BUY",
			want: true,
		},
		{
			name: "lowercase buy",
			side: "buy",
			want: true,
		},
		{
			name: "mixed case buy",
			side: "Buy",
			want: true,
		},
		{
			name: "sell",
			side: "SELL",
			want: false,
		},
		{
			name: "unrecognized token renders as sell",
			side: "short",
			want: false,
		},
		{
			name: "empty side renders as sell",
			side: "",
			want: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			marker := TradeMarker{Side: test.side}
			assert.Equal(t, marker.Buy(), test.want)
		})
	}
}
