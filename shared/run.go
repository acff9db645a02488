package shared

import (
	"fmt"
	"time"
)

// RunStatus represents the lifecycle status of a run.
type RunStatus int

const (
	Queued RunStatus = iota
	Running
	Completed
	Failed
)

// String stringifies the provided run status.
func (s RunStatus) String() string {
	switch s {
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether the run is still progressing towards a terminal state.
func (s RunStatus) Active() bool {
	return s == Queued || s == Running
}

// ParseRunStatus parses a run status from its wire representation.
func ParseRunStatus(status string) (RunStatus, error) {
	switch status {
	case "queued":
		return Queued, nil
	case "running":
		return Running, nil
	case "completed":
		return Completed, nil
	case "failed":
		return Failed, nil
	default:
		return 0, fmt.Errorf("unknown run status: %s", status)
	}
}

// RunKind represents the kind of backtest job a run executes.
type RunKind int

const (
	BacktestTrend RunKind = iota
	BacktestTrendSweep
	BacktestMm
	BacktestMmMtf
	BacktestMmMtfSweep
)

// String stringifies the provided run kind.
func (k RunKind) String() string {
	switch k {
	case BacktestTrend:
		return "backtest_trend"
	case BacktestTrendSweep:
		return "backtest_trend_sweep"
	case BacktestMm:
		return "backtest_mm"
	case BacktestMmMtf:
		return "backtest_mm_mtf"
	case BacktestMmMtfSweep:
		return "backtest_mm_mtf_sweep"
	default:
		return "unknown"
	}
}

// ParseRunKind parses a run kind from its wire representation.
func ParseRunKind(kind string) (RunKind, error) {
	switch kind {
	case "backtest_trend":
		return BacktestTrend, nil
	case "backtest_trend_sweep":
		return BacktestTrendSweep, nil
	case "backtest_mm":
		return BacktestMm, nil
	case "backtest_mm_mtf":
		return BacktestMmMtf, nil
	case "backtest_mm_mtf_sweep":
		return BacktestMmMtfSweep, nil
	default:
		return 0, fmt.Errorf("unknown run kind: %s", kind)
	}
}

// RunRecord represents a run tracked by the orchestration service.
type RunRecord struct {
	ID     string
	Name   string
	Kind   RunKind
	Status RunStatus
	// CreatedAt is the run creation time.
	CreatedAt time.Time
	// StartedAt is the run execution start time, zero when not yet started.
	StartedAt time.Time
	// EndedAt is the run completion time, zero while in flight.
	EndedAt time.Time
	// ExitCode is the engine process exit code, nil while in flight.
	ExitCode *int
	// Error carries the failure reason for failed runs.
	Error string
}

// RunEventRecord represents one structured log event emitted by a run.
type RunEventRecord struct {
	ID      int64
	RunID   string
	Ts      time.Time
	Level   string
	Message string
}

// RunArtifact represents a file artifact produced by a run.
type RunArtifact struct {
	ID        int64
	RunID     string
	Kind      string
	Path      string
	CreatedAt time.Time
}
