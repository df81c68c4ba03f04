package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/vi-countdown/audio"
	"github.com/lixenwraith/vi-countdown/config"
	"github.com/lixenwraith/vi-countdown/core"
	"github.com/lixenwraith/vi-countdown/engine"
	"github.com/lixenwraith/vi-countdown/events"
	"github.com/lixenwraith/vi-countdown/status"
)

// flagValues holds the command line overrides
type flagValues struct {
	configPath string
	paused     bool
	mute       bool
	debug      bool
	interval   time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(run).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// runFunc starts the countdown with the resolved configuration
type runFunc func(ctx context.Context, cfg *config.Config) error

func newRootCommand(runner runFunc) *cobra.Command {
	fv := &flagValues{}

	cmd := &cobra.Command{
		Use:   "vi-countdown [duration]",
		Short: "Countdown timer for the terminal",
		Long: `Counts down from the given duration and chimes at zero.

The duration is whole seconds ("90") or a Go duration ("1m30s").
Without an argument the configured initial_seconds is used.

Keys: space pause/resume, r reset, +/- add or remove a minute,
d metrics overlay, q or Esc quit.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, fv, args)
			if err != nil {
				return err
			}
			return runner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&fv.configPath, "config", "", "config file (default $HOME/.vi-countdown/config.yaml)")
	flags.BoolVar(&fv.paused, "paused", false, "start paused")
	flags.BoolVar(&fv.mute, "mute", false, "disable sound")
	flags.BoolVar(&fv.debug, "debug", false, "write a debug log")
	flags.DurationVar(&fv.interval, "interval", 0, "tick interval, e.g. 500ms")

	return cmd
}

// resolveConfig loads the config file and applies the argument and the flags set on the command line
func resolveConfig(cmd *cobra.Command, fv *flagValues, args []string) (*config.Config, error) {
	path := fv.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}

	// Overrides apply to this run only, the file is left alone
	cfg := *mgr.Config()

	if len(args) == 1 {
		secs, err := parseSeconds(args[0])
		if err != nil {
			return nil, err
		}
		cfg.Timer.InitialSeconds = secs
	}

	flags := cmd.Flags()
	if flags.Changed("paused") {
		cfg.Timer.StartActive = !fv.paused
	}
	if flags.Changed("mute") && fv.mute {
		cfg.Audio.Enabled = false
	}
	if flags.Changed("debug") {
		cfg.Log.Debug = fv.debug
	}
	if flags.Changed("interval") {
		cfg.Timer.TickInterval = fv.interval
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}
	return &cfg, nil
}

// parseSeconds accepts whole seconds or a Go duration, truncated to seconds
func parseSeconds(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, errors.Errorf("duration must not be negative: %s", s)
		}
		return n, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Errorf("invalid duration %q: want seconds or a value like 1m30s", s)
	}
	if d < 0 {
		return 0, errors.Errorf("duration must not be negative: %s", s)
	}
	return int(d / time.Second), nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logFile := setupLogging(cfg.Log.Debug, cfg.Log.Dir)
	if logFile != nil {
		defer logFile.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return errors.Wrap(err, "create screen")
	}
	if err := screen.Init(); err != nil {
		return errors.Wrap(err, "initialize screen")
	}
	defer screen.Fini()

	// Restore the terminal before any crash report
	core.SetCrashCleanup(screen.Fini)
	defer func() {
		if r := recover(); r != nil {
			core.HandleCrash(r)
		}
	}()

	var sound soundPlayer = silentPlayer{}
	if cfg.Audio.Enabled {
		sm := audio.NewSoundManager(cfg.Audio.Volume)
		if err := sm.Initialize(); err != nil {
			logger.Warningf("audio unavailable, continuing without sound: %v", err)
		} else {
			defer sm.Cleanup()
			sound = sm
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := events.NewEventQueue()
	registry := status.NewRegistry()

	timer := engine.NewTimer(ctx, cfg.Timer.InitialSeconds, cfg.Timer.StartActive,
		engine.WithName("main"),
		engine.WithTickInterval(cfg.Timer.TickInterval),
		engine.WithEventQueue(queue),
		engine.WithRegistry(registry),
		// Wake the UI loop so the chime does not wait for the next frame
		engine.WithOnExpire(func() { _ = screen.PostEvent(tcell.NewEventInterrupt(nil)) }),
	)
	defer timer.Close()

	logger.Infof("countdown %s started at %s (active=%v, interval=%v)",
		timer.ID(), engine.FormatDuration(cfg.Timer.InitialSeconds), cfg.Timer.StartActive, cfg.Timer.TickInterval)

	a := newApp(screen, timer, queue, registry, sound, cfg)
	a.run(ctx)
	return nil
}
