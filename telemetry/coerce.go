package telemetry

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// secondsThreshold separates second-resolution unix timestamps from
// millisecond ones. Second timestamps stay below it until the year 2286,
// millisecond timestamps after 2001 are always above it.
const secondsThreshold = 10_000_000_000

// CoerceNumber converts an arbitrary json value into a finite number. It
// accepts json numbers and strings that fully parse as numbers; anything
// else, and any non-finite result, yields false. It never panics, absence is
// the only failure signal.
func CoerceNumber(value gjson.Result) (float64, bool) {
	var num float64

	switch value.Type {
	case gjson.Number:
		num = value.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value.Str), 64)
		if err != nil {
			return 0, false
		}

		num = parsed
	default:
		return 0, false
	}

	if math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, false
	}

	return num, true
}

// NormalizeMillis normalizes a unix timestamp to millisecond resolution,
// promoting second-resolution values. Millisecond inputs pass through
// unchanged.
func NormalizeMillis(ts float64) int64 {
	if ts < secondsThreshold {
		return int64(ts * 1000)
	}

	return int64(ts)
}
