package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"franz/internal/agent"
	"franz/internal/archive"
	"franz/internal/capture"
	"franz/internal/config"
	"franz/internal/coords"
	"franz/internal/hotkey"
	"franz/internal/inference"
	"franz/internal/input"
	"franz/internal/metrics"
	"franz/internal/overlay"
	"franz/internal/platform"
	"franz/internal/tray"
)

type runFlags struct {
	maxCycles int
	noOverlay bool
	dryRun    bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the perception-action loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, logger, err := ctx.ensure()
			if err != nil {
				return err
			}
			return runAgent(cmd.Context(), mgr.Get(), logger, flags)
		},
	}

	cmd.Flags().IntVar(&flags.maxCycles, "max-cycles", 0, "Stop after this many cycles (0 runs until interrupted)")
	cmd.Flags().BoolVar(&flags.noOverlay, "no-overlay", false, "Do not open the narrative window")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Log input events instead of injecting them")
	return cmd
}

func runAgent(parent context.Context, cfg config.Config, logger *slog.Logger, flags runFlags) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := platform.Load()
	if err != nil {
		return err
	}
	// Must precede any window creation and every metric query.
	b.EnableDPIAwareness(logger)
	if !platform.IsElevated() {
		logger.Info("running without elevation; input to elevated windows will be blocked")
	}

	screen := b.ScreenSize()
	if screen.Width <= 0 || screen.Height <= 0 {
		return fmt.Errorf("screen size unavailable (%dx%d)", screen.Width, screen.Height)
	}

	sender := input.NewSystemSender(b)
	if flags.dryRun {
		sender = input.NewLogSender(logger)
	}
	engine := input.NewEngine(sender, coords.NewMapper(screen.Width, screen.Height), inputTiming(cfg), logger)

	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Listen, logger); err != nil {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	deps := agent.Deps{
		Capturer: capture.New(b),
		Decider:  inference.New(inferenceConfig(cfg), logger),
		Actuator: engine,
		Metrics:  m,
	}

	if cfg.Archive.Enabled {
		sink, err := archive.Open(cfg.Archive.Dir, time.Now())
		if err != nil {
			return err
		}
		defer sink.Close()
		deps.Sink = sink
		logger = logger.With("run_id", sink.RunID())
		logger.Info("archiving frames", "dir", sink.Dir())
	}

	if cfg.Overlay.Enabled && !flags.noOverlay {
		opts, err := overlayOptions(cfg, screen)
		if err != nil {
			return err
		}
		ov := overlay.New(b, opts, logger)
		if err := ov.Start(); err != nil {
			logger.Warn("overlay unavailable, continuing without it", "error", err)
		}
		defer func() {
			if err := ov.Close(); err != nil {
				logger.Warn("overlay shutdown", "error", err)
			}
		}()
		deps.Narrator = ov
	}

	var t *tray.Tray
	opts := agentOptions(cfg, screen, flags.maxCycles)
	opts.OnCycle = func(r agent.Report) {
		if t != nil {
			t.SetStatus(fmt.Sprintf("Cycle %d: %s", r.Step, r.Action))
		}
	}
	a := agent.New(deps, opts, logger)

	hk := hotkey.NewManager(b, logger)
	if err := hk.Register(cfg.Control.StopHotkey, a.Quit); err != nil {
		return fmt.Errorf("control.stop_hotkey: %w", err)
	}
	if err := hk.Register(cfg.Control.PauseHotkey, a.TogglePause); err != nil {
		return fmt.Errorf("control.pause_hotkey: %w", err)
	}
	if err := hk.Start(); err != nil {
		logger.Warn("hotkeys unavailable", "error", err)
	} else {
		defer hk.Stop()
	}

	if !cfg.Control.Tray {
		return a.Run(ctx)
	}

	// The tray loop owns the main goroutine; the agent runs beside it.
	t = tray.New(a, logger)
	errCh := make(chan error, 1)
	go func() {
		<-t.Ready()
		errCh <- a.Run(ctx)
		t.Stop()
	}()
	t.Run()
	a.Quit()
	return <-errCh
}
