package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestRunStatus(t *testing.T) {
	statuses := []RunStatus{Queued, Running, Completed, Failed}

	// Ensure statuses round trip through their wire representation.
	for _, status := range statuses {
		parsed, err := ParseRunStatus(status.String())
		assert.NoError(t, err)
		assert.Equal(t, parsed, status)
	}

	// Ensure unknown statuses are rejected.
	_, err := ParseRunStatus("paused")
	assert.Error(t, err)

	// Ensure only queued and running runs are considered active.
	assert.True(t, Queued.Active())
	assert.True(t, Running.Active())
	assert.False(t, Completed.Active())
	assert.False(t, Failed.Active())
}

func TestRunKind(t *testing.T) {
	kinds := []RunKind{BacktestTrend, BacktestTrendSweep, BacktestMm, BacktestMmMtf, BacktestMmMtfSweep}

	// Ensure kinds round trip through their wire representation.
	for _, kind := range kinds {
		parsed, err := ParseRunKind(kind.String())
		assert.NoError(t, err)
		assert.Equal(t, parsed, kind)
	}

	// Ensure unknown kinds are rejected.
	_, err := ParseRunKind("backtest_unknown")
	assert.Error(t, err)
}

func TestEquityPointPrice(t *testing.T) {
	// Ensure the asset close is preferred over the account equity when
	// reported.
	point := EquityPoint{Equity: 100, Close: 55, HasClose: true}
	assert.Equal(t, point.Price(), float64(55))

	point = EquityPoint{Equity: 100}
	assert.Equal(t, point.Price(), float64(100))
}
