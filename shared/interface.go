package shared

import "context"

// RunFetcher defines the requirements for fetching run telemetry from the
// orchestration service.
type RunFetcher interface {
	// FetchRuns fetches the most recent runs, newest first.
	FetchRuns(ctx context.Context, limit int) ([]RunRecord, error)
	// FetchRun fetches the run with the provided id.
	FetchRun(ctx context.Context, id string) (*RunRecord, error)
	// FetchRunEvents fetches run events in chronological order.
	FetchRunEvents(ctx context.Context, id string, limit int) ([]RunEventRecord, error)
	// FetchRunMetrics fetches the latest metrics snapshot for a run. A run
	// with no metrics yet yields a nil snapshot and no error.
	FetchRunMetrics(ctx context.Context, id string) (*RunMetrics, error)
	// FetchRunArtifacts fetches the artifacts produced by a run. A run with
	// no artifacts yet yields an empty collection and no error.
	FetchRunArtifacts(ctx context.Context, id string) ([]RunArtifact, error)
}
