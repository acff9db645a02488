package chart

import (
	"math"
	"sort"

	"github.com/dnldd/pulse/shared"
)

const (
	// minuteMs is one minute in milliseconds.
	minuteMs = int64(60_000)
	// oneMinuteBucket is the candle width for short spans.
	oneMinuteBucket = minuteMs
	// fiveMinuteBucket is the candle width for spans over twelve hours.
	fiveMinuteBucket = 5 * minuteMs
	// thirtyMinuteBucket is the candle width for spans over two days.
	thirtyMinuteBucket = 30 * minuteMs
	// twelveHoursMs is twelve hours in milliseconds.
	twelveHoursMs = 12 * 60 * minuteMs
	// twoDaysMs is two days in milliseconds.
	twoDaysMs = 2 * 24 * 60 * minuteMs
)

// BucketWidth selects the candle bucket width in milliseconds for the
// provided time span.
func BucketWidth(spanMs int64) int64 {
	switch {
	case spanMs > twoDaysMs:
		return thirtyMinuteBucket
	case spanMs > twelveHoursMs:
		return fiveMinuteBucket
	default:
		return oneMinuteBucket
	}
}

// AggregateCandles buckets an ascending series of equity samples into
// fixed-width OHLC candles, one per distinct bucket start, sorted ascending.
// The first sample assigned to a bucket sets the open, the last sets the
// close, so the input must already be sorted by timestamp. Samples with a
// non-finite price are skipped.
func AggregateCandles(points []shared.EquityPoint) []shared.Candle {
	if len(points) == 0 {
		return nil
	}

	width := BucketWidth(points[len(points)-1].Ts - points[0].Ts)
	buckets := make(map[int64]*shared.Candle)

	for idx := range points {
		price := points[idx].Price()
		if math.IsNaN(price) || math.IsInf(price, 0) {
			continue
		}

		start := points[idx].Ts / width * width

		candle, ok := buckets[start]
		if !ok {
			buckets[start] = &shared.Candle{
				Ts:    start,
				Open:  price,
				High:  price,
				Low:   price,
				Close: price,
			}
			continue
		}

		candle.High = math.Max(candle.High, price)
		candle.Low = math.Min(candle.Low, price)
		candle.Close = price
	}

	candles := make([]shared.Candle, 0, len(buckets))
	for start := range buckets {
		candles = append(candles, *buckets[start])
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Ts < candles[j].Ts
	})

	return candles
}
