package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dnldd/pulse/fetch"
	"github.com/dnldd/pulse/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "", "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sweep *fetch.SweepRequest
	if cfg.Sweep {
		sweep = &fetch.SweepRequest{
			Symbol:          cfg.Symbol,
			Start:           cfg.Start,
			End:             cfg.End,
			MakerFeeBpsList: cfg.MakerFeeBpsList,
			HtfInterval:     cfg.HtfInterval,
			LtfInterval:     cfg.LtfInterval,
			TopN:            cfg.sweepTopN(),
		}
	}

	pulseCfg := service.PulseConfig{
		BaseURL:          cfg.BaseURL,
		RunID:            cfg.RunID,
		ListRuns:         cfg.ListRuns,
		Follow:           cfg.Follow,
		Sweep:            sweep,
		DatabaseEndpoint: cfg.DatabaseEndpoint,
		DatabaseUser:     cfg.DatabaseUser,
		DatabasePass:     cfg.DatabasePass,
		CanvasWidth:      cfg.CanvasWidth,
		CanvasHeight:     cfg.CanvasHeight,
		Cancel:           cancel,
	}
	pulse, err := service.NewPulse(&pulseCfg)
	if err != nil {
		log.Printf("creating pulse service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	err = pulse.Run(ctx)
	if err != nil {
		log.Printf("running pulse service: %v", err)
	}
}
