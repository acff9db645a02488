package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/dnldd/pulse/telemetry"
	"github.com/rs/zerolog"
)

const (
	// defaultActiveInterval is the poll cadence while a run is progressing.
	defaultActiveInterval = time.Second
	// defaultSettledInterval is the poll cadence once a run has reached a
	// terminal state.
	defaultSettledInterval = time.Second * 4
	// roiTrackCap bounds the rolling window of observed roi samples, oldest
	// evicted first.
	roiTrackCap = 120
	// eventFetchLimit is the number of events requested per refresh.
	eventFetchLimit = 300
)

// State represents the lifecycle state of a monitor.
type State int

const (
	Idle State = iota
	Polling
	Stopped
)

// String stringifies the provided state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ROISample is one observed return-on-investment reading.
type ROISample struct {
	// Ts is a unix millisecond timestamp.
	Ts int64
	// ROI is the observed roi metric value.
	ROI float64
}

// Snapshot is one committed view of a run's telemetry. All four collections
// are committed together so a refresh never renders new events against stale
// metrics.
type Snapshot struct {
	Run *shared.RunRecord
	// Events is the run's event timeline in chronological order.
	Events    []shared.RunEventRecord
	Metrics   *shared.RunMetrics
	Artifacts []shared.RunArtifact
	// ROITrack is the rolling window of roi readings observed by this
	// monitor. It lives only in memory and resets with the monitor.
	ROITrack []ROISample
	// Err carries the most recent refresh failure, empty while healthy. A
	// failed refresh keeps the previous run data visible.
	Err string
	// UpdatedAt is the commit time of this snapshot.
	UpdatedAt time.Time
}

// MonitorConfig represents the configuration for a run monitor.
type MonitorConfig struct {
	// RunID is the id of the monitored run.
	RunID string
	// Fetcher fetches run telemetry from the orchestration service.
	Fetcher shared.RunFetcher
	// NotifySnapshot is invoked with a copy of every committed snapshot.
	NotifySnapshot func(snapshot *Snapshot)
	// ActiveInterval overrides the poll cadence for progressing runs.
	ActiveInterval time.Duration
	// SettledInterval overrides the poll cadence for settled runs.
	SettledInterval time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Monitor drives the periodic refresh of one run view. It owns the rolling
// roi window and the latest telemetry snapshot for that view exclusively; a
// new view of the same run gets a fresh monitor.
type Monitor struct {
	cfg      *MonitorConfig
	mtx      sync.Mutex
	state    State
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	snapshot Snapshot
	roiTrack []ROISample
}

// NewMonitor initializes a new run monitor.
func NewMonitor(cfg *MonitorConfig) (*Monitor, error) {
	if cfg.RunID == "" {
		return nil, fmt.Errorf("run id cannot be an empty string")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("run fetcher cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	if cfg.ActiveInterval == 0 {
		cfg.ActiveInterval = defaultActiveInterval
	}
	if cfg.SettledInterval == 0 {
		cfg.SettledInterval = defaultSettledInterval
	}

	return &Monitor{
		cfg:      cfg,
		state:    Idle,
		roiTrack: make([]ROISample, 0, roiTrackCap),
	}, nil
}

// State returns the monitor's current lifecycle state.
func (m *Monitor) State() State {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.state
}

// Snapshot returns a copy of the latest committed snapshot.
func (m *Monitor) Snapshot() *Snapshot {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return copySnapshot(&m.snapshot)
}

// Start transitions the monitor from idle to polling and begins the refresh
// loop. A monitor serves one view and cannot be restarted once stopped.
func (m *Monitor) Start(ctx context.Context) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.state != Idle {
		return fmt.Errorf("monitor for run %s already %s", m.cfg.RunID, m.state.String())
	}

	ctx, cancel := context.WithCancel(ctx)
	m.state = Polling
	m.gen++
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.poll(ctx, m.gen)

	return nil
}

// Stop transitions the monitor to stopped, cancels the pending refresh timer
// and discards any in-flight refresh for this view. A refresh resolving
// after stop never mutates state.
func (m *Monitor) Stop() {
	m.mtx.Lock()
	if m.state == Stopped {
		m.mtx.Unlock()
		return
	}

	m.state = Stopped
	m.gen++
	cancel := m.cancel
	done := m.done
	m.mtx.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// poll runs the refresh loop. Refreshes never overlap for one monitor: the
// next tick is only armed after the previous refresh fully committed.
func (m *Monitor) poll(ctx context.Context, gen uint64) {
	defer close(m.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		snapshot := m.refresh(ctx)
		committed, ok := m.commit(gen, snapshot)
		if !ok {
			return
		}

		if committed.Err != "" {
			m.cfg.Logger.Error().Str("run", m.cfg.RunID).Msg(committed.Err)
		}

		// Cadence follows the freshly fetched status, so a run reaching a
		// terminal state slows the loop starting with its next tick.
		timer.Reset(m.interval(committed))
	}
}

// interval selects the poll cadence for the provided snapshot.
func (m *Monitor) interval(snapshot *Snapshot) time.Duration {
	if snapshot.Run != nil && snapshot.Run.Status.Active() {
		return m.cfg.ActiveInterval
	}

	return m.cfg.SettledInterval
}

// refresh issues the four telemetry fetches concurrently and joins them into
// a candidate snapshot. Failures on the required run and event fetches mark
// the snapshot errored; metrics and artifacts are best effort.
func (m *Monitor) refresh(ctx context.Context) *Snapshot {
	var (
		run       *shared.RunRecord
		events    []shared.RunEventRecord
		metrics   *shared.RunMetrics
		artifacts []shared.RunArtifact

		runErr    error
		eventsErr error
	)

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		run, runErr = m.cfg.Fetcher.FetchRun(ctx, m.cfg.RunID)
	}()
	go func() {
		defer wg.Done()
		events, eventsErr = m.cfg.Fetcher.FetchRunEvents(ctx, m.cfg.RunID, eventFetchLimit)
	}()
	go func() {
		defer wg.Done()
		metrics, _ = m.cfg.Fetcher.FetchRunMetrics(ctx, m.cfg.RunID)
	}()
	go func() {
		defer wg.Done()
		artifacts, _ = m.cfg.Fetcher.FetchRunArtifacts(ctx, m.cfg.RunID)
	}()

	wg.Wait()

	snapshot := &Snapshot{UpdatedAt: time.Now()}

	switch {
	case runErr != nil:
		snapshot.Err = runErr.Error()
	case eventsErr != nil:
		snapshot.Err = eventsErr.Error()
	default:
		snapshot.Run = run
		snapshot.Events = events
		snapshot.Metrics = metrics
		snapshot.Artifacts = artifacts
	}

	return snapshot
}

// commit publishes a refreshed snapshot if this view is still current. A
// failed refresh keeps the previous run data and only surfaces the error.
// The returned snapshot is the committed view; ok is false when the monitor
// was stopped while the refresh was in flight.
func (m *Monitor) commit(gen uint64, next *Snapshot) (*Snapshot, bool) {
	m.mtx.Lock()

	if m.state != Polling || m.gen != gen {
		m.mtx.Unlock()
		return nil, false
	}

	if next.Err != "" {
		// Retain the previous successful view.
		next.Run = m.snapshot.Run
		next.Events = m.snapshot.Events
		next.Metrics = m.snapshot.Metrics
		next.Artifacts = m.snapshot.Artifacts
	}

	if next.Err == "" && next.Metrics != nil {
		roi, ok := telemetry.ExtractROI(next.Metrics.Payload)
		if ok {
			m.appendROI(ROISample{Ts: next.UpdatedAt.UnixMilli(), ROI: roi})
		}
	}

	next.ROITrack = append([]ROISample(nil), m.roiTrack...)
	m.snapshot = *next

	notify := m.cfg.NotifySnapshot
	committed := copySnapshot(next)
	m.mtx.Unlock()

	if notify != nil {
		notify(copySnapshot(committed))
	}

	return committed, true
}

// appendROI appends a sample to the rolling roi window, evicting the oldest
// sample beyond the cap.
func (m *Monitor) appendROI(sample ROISample) {
	m.roiTrack = append(m.roiTrack, sample)
	if len(m.roiTrack) > roiTrackCap {
		m.roiTrack = m.roiTrack[1:]
	}
}

// copySnapshot clones a snapshot so callers never alias the monitor's state.
func copySnapshot(snapshot *Snapshot) *Snapshot {
	clone := *snapshot
	clone.Events = append([]shared.RunEventRecord(nil), snapshot.Events...)
	clone.Artifacts = append([]shared.RunArtifact(nil), snapshot.Artifacts...)
	clone.ROITrack = append([]ROISample(nil), snapshot.ROITrack...)

	if snapshot.Run != nil {
		run := *snapshot.Run
		clone.Run = &run
	}
	if snapshot.Metrics != nil {
		metrics := *snapshot.Metrics
		clone.Metrics = &metrics
	}

	return &clone
}
