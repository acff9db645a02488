package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dnldd/pulse/chart"
	"github.com/dnldd/pulse/database"
	"github.com/dnldd/pulse/fetch"
	"github.com/dnldd/pulse/monitor"
	"github.com/dnldd/pulse/shared"
	"github.com/dnldd/pulse/telemetry"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// listRefreshInterval is the cadence of the followed run list.
	listRefreshInterval = time.Second * 5
	// eventTailSize is the number of trailing events rendered per refresh.
	eventTailSize = 8
	// defaultCanvasWidth is the fallback chart canvas width in pixels.
	defaultCanvasWidth = 100
	// defaultCanvasHeight is the fallback chart canvas height in pixels.
	defaultCanvasHeight = 24
)

// PulseConfig represents the configuration struct for the pulse service.
type PulseConfig struct {
	// BaseURL is the orchestrator api base url.
	BaseURL string
	// RunID is the id of the run to watch.
	RunID string
	// ListRuns lists recent runs instead of watching one.
	ListRuns bool
	// Follow keeps refreshing the run list on a schedule.
	Follow bool
	// Sweep holds the preset parameters when enqueueing a new sweep run.
	Sweep *fetch.SweepRequest
	// DatabaseEndpoint is the optional run archive endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the run archive database user.
	DatabaseUser string
	// DatabasePass is the run archive database user pass.
	DatabasePass string
	// CanvasWidth is the chart canvas width in pixels.
	CanvasWidth int
	// CanvasHeight is the chart canvas height in pixels.
	CanvasHeight int
	// Output receives rendered telemetry.
	Output io.Writer
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *PulseConfig) Validate() error {
	var errs error

	if cfg.BaseURL == "" {
		errs = errors.Join(errs, fmt.Errorf("orchestrator base url cannot be an empty string"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	if !cfg.ListRuns && cfg.Sweep == nil && cfg.RunID == "" {
		errs = errors.Join(errs, fmt.Errorf("no run id provided to watch"))
	}

	return errs
}

// Pulse represents a live run telemetry service.
type Pulse struct {
	cfg      *PulseConfig
	client   *fetch.Client
	archiver database.RunArchiver
	logger   *zerolog.Logger
}

// NewPulse initializes a new pulse service.
func NewPulse(cfg *PulseConfig) (*Pulse, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "pulse").Logger()

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.CanvasWidth == 0 {
		cfg.CanvasWidth = defaultCanvasWidth
	}
	if cfg.CanvasHeight == 0 {
		cfg.CanvasHeight = defaultCanvasHeight
	}

	clientLogger := logger.With().Str("component", "fetchclient").Logger()
	client, err := fetch.NewClient(&fetch.ClientConfig{
		BaseURL: cfg.BaseURL,
		Logger:  &clientLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator client: %v", err)
	}

	return &Pulse{
		cfg:    cfg,
		client: client,
		logger: &logger,
	}, nil
}

// Run handles the lifecycle processes of the pulse service.
func (p *Pulse) Run(ctx context.Context) error {
	if p.cfg.DatabaseEndpoint != "" {
		dbLogger := p.logger.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: p.cfg.DatabaseEndpoint,
			User:     p.cfg.DatabaseUser,
			Pass:     p.cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return fmt.Errorf("creating run archive: %v", err)
		}

		p.archiver = db
	}

	switch {
	case p.cfg.ListRuns:
		return p.list(ctx)
	case p.cfg.Sweep != nil:
		run, err := p.client.CreateMmMtfSweepRun(ctx, p.cfg.Sweep)
		if err != nil {
			return fmt.Errorf("enqueueing sweep run: %v", err)
		}

		p.logger.Info().Msgf("enqueued sweep run %s (%s)", run.ID, run.Name)
		return p.watch(ctx, run.ID)
	default:
		return p.watch(ctx, p.cfg.RunID)
	}
}

// list prints the most recent runs, refreshing on a schedule when following.
func (p *Pulse) list(ctx context.Context) error {
	err := p.printRuns(ctx)
	if err != nil {
		return err
	}

	if !p.cfg.Follow {
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating job scheduler: %v", err)
	}

	_, err = scheduler.NewJob(gocron.DurationJob(listRefreshInterval),
		gocron.NewTask(func() {
			err := p.printRuns(ctx)
			if err != nil {
				p.logger.Error().Msgf("refreshing run list: %v", err)
			}
		}))
	if err != nil {
		return fmt.Errorf("scheduling run list refresh: %v", err)
	}

	scheduler.Start()
	defer func() {
		err := scheduler.Shutdown()
		if err != nil {
			p.logger.Error().Msgf("shutting down job scheduler: %v", err)
		}
	}()

	<-ctx.Done()

	return nil
}

// printRuns fetches and renders the run list.
func (p *Pulse) printRuns(ctx context.Context) error {
	runs, err := p.client.FetchRuns(ctx, fetch.RunListLimit)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.cfg.Output, "%-36s  %-9s  %-22s  %-20s  %s\n",
		"ID", "STATUS", "KIND", "CREATED", "NAME")
	for idx := range runs {
		run := &runs[idx]
		fmt.Fprintf(p.cfg.Output, "%-36s  %-9s  %-22s  %-20s  %s\n",
			run.ID, run.Status.String(), run.Kind.String(),
			run.CreatedAt.Format(time.DateTime), run.Name)
	}

	return nil
}

// watch monitors the provided run until it settles or the context ends.
func (p *Pulse) watch(ctx context.Context, runID string) error {
	_, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %v", runID, err)
	}

	settled := make(chan struct{})
	var notifiedSettled bool

	monitorLogger := p.logger.With().Str("component", "monitor").Logger()
	mon, err := monitor.NewMonitor(&monitor.MonitorConfig{
		RunID:   runID,
		Fetcher: p.client,
		NotifySnapshot: func(snapshot *monitor.Snapshot) {
			p.renderSnapshot(snapshot)

			if snapshot.Run != nil && !snapshot.Run.Status.Active() && !notifiedSettled {
				notifiedSettled = true
				close(settled)
			}
		},
		Logger: &monitorLogger,
	})
	if err != nil {
		return fmt.Errorf("creating run monitor: %v", err)
	}

	err = mon.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting run monitor: %v", err)
	}

	select {
	case <-ctx.Done():
		mon.Stop()
		return nil
	case <-settled:
	}

	snapshot := mon.Snapshot()
	mon.Stop()

	if p.archiver != nil && snapshot.Run != nil {
		var roi float64
		var hasROI bool
		if len(snapshot.ROITrack) > 0 {
			roi = snapshot.ROITrack[len(snapshot.ROITrack)-1].ROI
			hasROI = true
		}

		err = p.archiver.ArchiveRun(ctx, snapshot.Run, roi, hasROI)
		if err != nil {
			p.logger.Error().Msgf("archiving run %s: %v", runID, err)
		}
	}

	p.logger.Info().Msgf("run %s settled with status %s", runID, snapshot.Run.Status.String())

	return nil
}

// renderSnapshot renders one committed telemetry snapshot.
func (p *Pulse) renderSnapshot(snapshot *monitor.Snapshot) {
	out := p.cfg.Output

	if snapshot.Run != nil {
		fmt.Fprintf(out, "\nrun %s (%s) %s\n", snapshot.Run.ID,
			snapshot.Run.Name, snapshot.Run.Status.String())
	}
	if snapshot.Err != "" {
		fmt.Fprintf(out, "refresh error: %s\n", snapshot.Err)
	}

	if snapshot.Metrics != nil {
		scalars := telemetry.ExtractScalarMetrics(snapshot.Metrics.Payload)
		for idx := range scalars {
			fmt.Fprintf(out, "%s=%.4f  ", scalars[idx].Key, scalars[idx].Value)
		}
		if len(scalars) > 0 {
			fmt.Fprintln(out)
		}

		p.renderCharts(snapshot.Metrics)
	}

	if len(snapshot.ROITrack) > 0 {
		fmt.Fprintf(out, "roi (last %d samples): %.4f\n",
			len(snapshot.ROITrack), snapshot.ROITrack[len(snapshot.ROITrack)-1].ROI)
	}

	tail := snapshot.Events
	if len(tail) > eventTailSize {
		tail = tail[len(tail)-eventTailSize:]
	}
	for idx := range tail {
		fmt.Fprintf(out, "%s [%s] %s\n", tail[idx].Ts.Format(time.TimeOnly),
			tail[idx].Level, tail[idx].Message)
	}

	for idx := range snapshot.Artifacts {
		fmt.Fprintf(out, "artifact %s: %s\n",
			snapshot.Artifacts[idx].Kind, snapshot.Artifacts[idx].Path)
	}
}

// renderCharts renders the equity curve and candle charts derived from a
// metrics payload.
func (p *Pulse) renderCharts(metrics *shared.RunMetrics) {
	out := p.cfg.Output

	equity := telemetry.ExtractEquitySeries(metrics.Payload)
	trades := telemetry.ExtractTradeSeries(metrics.Payload)

	equityMarkers := chart.AlignTradesToEquity(trades, equity)
	fmt.Fprintln(out, "equity:")
	fmt.Fprintln(out, chart.RenderEquityChart(equity, equityMarkers,
		p.cfg.CanvasWidth, p.cfg.CanvasHeight))

	candles := chart.AggregateCandles(equity)
	candleMarkers := chart.AlignTradesToCandles(trades, candles)
	fmt.Fprintln(out, "candles:")
	fmt.Fprintln(out, chart.RenderCandleChart(candles, candleMarkers,
		p.cfg.CanvasWidth, p.cfg.CanvasHeight))
}
