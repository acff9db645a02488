package telemetry

import (
	"sort"

	"github.com/dnldd/pulse/shared"
	"github.com/tidwall/gjson"
)

const (
	// equityKey is the metrics payload field holding the equity curve samples.
	equityKey = "chart_equity"
	// tradesKey is the metrics payload field holding the executed trade events.
	tradesKey = "chart_trades"
)

// ExtractEquitySeries extracts typed equity samples from a metrics payload,
// sorted ascending by normalized timestamp. Malformed elements are dropped
// silently, metrics are best-effort telemetry from a run that may not have
// started emitting them yet. A missing or non-array field yields an empty
// series.
func ExtractEquitySeries(payload gjson.Result) []shared.EquityPoint {
	raw := payload.Get(equityKey)
	if !raw.IsArray() {
		return nil
	}

	elements := raw.Array()
	points := make([]shared.EquityPoint, 0, len(elements))

	for idx := range elements {
		ts, ok := CoerceNumber(elements[idx].Get("ts"))
		if !ok {
			continue
		}

		equity, ok := CoerceNumber(elements[idx].Get("equity"))
		if !ok {
			continue
		}

		point := shared.EquityPoint{
			Ts:     NormalizeMillis(ts),
			Equity: equity,
		}

		closePrice, ok := CoerceNumber(elements[idx].Get("close"))
		if ok {
			point.Close = closePrice
			point.HasClose = true
		}

		points = append(points, point)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Ts < points[j].Ts
	})

	return points
}

// ExtractTradeSeries extracts typed trade events from a metrics payload,
// sorted ascending by normalized timestamp. Elements missing a coercible
// timestamp or price, or a string side, are dropped silently.
func ExtractTradeSeries(payload gjson.Result) []shared.TradePoint {
	raw := payload.Get(tradesKey)
	if !raw.IsArray() {
		return nil
	}

	elements := raw.Array()
	trades := make([]shared.TradePoint, 0, len(elements))

	for idx := range elements {
		ts, ok := CoerceNumber(elements[idx].Get("ts"))
		if !ok {
			continue
		}

		price, ok := CoerceNumber(elements[idx].Get("price"))
		if !ok {
			continue
		}

		side := elements[idx].Get("side")
		if side.Type != gjson.String {
			continue
		}

		trade := shared.TradePoint{
			Ts:    NormalizeMillis(ts),
			Side:  side.Str,
			Price: price,
		}

		qty, ok := CoerceNumber(elements[idx].Get("qty"))
		if ok {
			trade.Qty = qty
			trade.HasQty = true
		}

		pnl, ok := CoerceNumber(elements[idx].Get("pnl"))
		if ok {
			trade.PNL = pnl
			trade.HasPNL = true
		}

		trades = append(trades, trade)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Ts < trades[j].Ts
	})

	return trades
}

// ScalarMetric is one top-level numeric metric from a payload.
type ScalarMetric struct {
	Key   string
	Value float64
}

// ExtractScalarMetrics extracts the finite top-level numeric fields of a
// metrics payload, sorted by key. Chart series and non-numeric fields are
// skipped.
func ExtractScalarMetrics(payload gjson.Result) []ScalarMetric {
	metrics := make([]ScalarMetric, 0)

	payload.ForEach(func(key, value gjson.Result) bool {
		if key.Str == equityKey || key.Str == tradesKey {
			return true
		}

		num, ok := CoerceNumber(value)
		if !ok {
			return true
		}

		metrics = append(metrics, ScalarMetric{Key: key.Str, Value: num})
		return true
	})

	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].Key < metrics[j].Key
	})

	return metrics
}

// ExtractROI extracts the run's return-on-investment metric from a payload.
// The engine reports it as roi_pct, older runs used roi.
func ExtractROI(payload gjson.Result) (float64, bool) {
	roi, ok := CoerceNumber(payload.Get("roi_pct"))
	if ok {
		return roi, true
	}

	return CoerceNumber(payload.Get("roi"))
}
