// ScreenPilot - Perception-Action Agent
//
// This is the main entry point for the ScreenPilot agent. ScreenPilot
// watches the screen for configured template images, keeps a live
// observation store, and drives keyboard/mouse input through a
// frame-paced behavior policy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/greyline-dev/screenpilot/internal/api"
	"github.com/greyline-dev/screenpilot/internal/capture"
	"github.com/greyline-dev/screenpilot/internal/infrastructure/config"
	"github.com/greyline-dev/screenpilot/internal/infrastructure/logging"
	"github.com/greyline-dev/screenpilot/internal/infrastructure/telemetry"
	"github.com/greyline-dev/screenpilot/internal/input"
	"github.com/greyline-dev/screenpilot/internal/perception"
	"github.com/greyline-dev/screenpilot/internal/policy"
	"github.com/greyline-dev/screenpilot/internal/runner"
	"github.com/greyline-dev/screenpilot/internal/tracking"
	"github.com/greyline-dev/screenpilot/internal/vision"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ScreenPilot",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Load the template assets
	templates, err := vision.LoadTemplateDir(cfg.Tracker.TemplateDir, vision.TemplateOptions{
		Grayscale:       cfg.Capture.Grayscale,
		DownscaleFactor: cfg.Tracker.DownscaleFactor,
	})
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	defer func() {
		for _, tpl := range templates {
			tpl.Close()
		}
	}()
	log.Info("templates loaded",
		"dir", cfg.Tracker.TemplateDir,
		"count", len(templates),
	)

	// Resolve the display geometry up front; the capture source itself is
	// constructed inside the tracking goroutine.
	bounds, err := capture.DisplayBounds(cfg.Capture.Display)
	if err != nil {
		return fmt.Errorf("resolving display: %w", err)
	}
	log.Info("display resolved",
		"index", cfg.Capture.Display,
		"width", bounds.Dx(),
		"height", bounds.Dy(),
	)

	// Shared observation store
	store := perception.NewStore()

	// Tracking service: the factory runs on the tracking goroutine so the
	// capture handle keeps its thread affinity.
	trackerCfg := vision.TrackerConfig{
		Confidence:      cfg.Tracker.Confidence,
		SearchMargin:    cfg.Tracker.SearchMargin,
		DownscaleFactor: cfg.Tracker.DownscaleFactor,
		CoarseFactor:    cfg.Tracker.CoarseFactor,
		FullScan:        cfg.Tracker.FullScan,
	}
	visionLog := log.With("component", "vision")
	factory := func() (tracking.Coordinator, error) {
		display, err := capture.OpenDisplay(cfg.Capture.Display)
		if err != nil {
			return nil, fmt.Errorf("opening display: %w", err)
		}

		trackers := make([]*vision.TargetTracker, 0, len(templates))
		for _, tpl := range templates {
			trackers = append(trackers, vision.NewTargetTracker(tpl, vision.NewTemplateMatcher(), trackerCfg))
		}

		coord, err := vision.NewMultiTargetCoordinator(display, trackers, vision.CoordinatorConfig{
			Grayscale:       cfg.Capture.Grayscale,
			DownscaleFactor: cfg.Tracker.DownscaleFactor,
			Workers:         cfg.Tracker.Workers,
		})
		if err != nil {
			return nil, fmt.Errorf("building coordinator: %w", err)
		}
		coord.SetLogger(visionLog)
		return coord, nil
	}

	tracker := tracking.NewService(factory, store, cfg.Tracker.FPS)
	tracker.SetLogger(log.With("component", "tracking"))

	// Connect telemetry (optional)
	var telemetryClient *telemetry.Client
	if cfg.Telemetry.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.Telemetry, cfg.Agent.ID)
		if err != nil {
			return fmt.Errorf("connecting telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		telemetryClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})
		tracker.SetRecorder(telemetryClient)
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
	} else {
		log.Info("telemetry disabled")
	}

	// Register behaviors and resolve the configured one
	registry := policy.NewRegistry()
	policy.RegisterBuiltins(registry, bounds.Dx(), bounds.Dy())

	behavior, err := registry.Resolve(cfg.Runner.Policy)
	if err != nil {
		return fmt.Errorf("resolving policy: %w", err)
	}
	log.Info("policy resolved", "policy", cfg.Runner.Policy, "available", registry.Names())

	// Action intent buffer over the real device backend
	intent := input.NewIntent(input.NewRobotgoBackend(), bindings(cfg), cfg.GetDashGap())
	intent.SetLogger(log.With("component", "input"))

	// Status API (optional)
	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.With("component", "api"),
			Store:    store,
			Tracker:  tracker,
			Policies: registry,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("status API disabled")
	}

	// Start the perception loop
	if err := tracker.Start(ctx); err != nil {
		return fmt.Errorf("starting tracking service: %w", err)
	}
	defer func() {
		log.Info("stopping tracking service")
		if stopErr := tracker.Stop(); stopErr != nil {
			log.Error("error stopping tracking service", "error", stopErr)
		}
	}()

	log.Info("initialisation complete, running policy loop")

	// Drive the policy until the shutdown signal. The runner releases all
	// held keys on every exit path.
	scriptRunner := runner.NewScriptRunner(store, intent, cfg.Runner.FPS)
	scriptRunner.SetLogger(log.With("component", "runner"))
	stats := scriptRunner.Run(ctx, behavior)

	if telemetryClient != nil {
		telemetryClient.WriteRunStats(cfg.Runner.Policy, stats)
	}

	log.Info("ScreenPilot stopped",
		"run_id", stats.RunID,
		"frames", stats.Frames,
		"fps", fmt.Sprintf("%.1f", stats.FPS),
	)
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SCREENPILOT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SCREENPILOT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// bindings converts the config binding table, filling blanks from the
// defaults so a partial config still drives every intent.
func bindings(cfg *config.Config) input.Bindings {
	b := input.DefaultBindings()
	if v := cfg.Input.Bindings.Left; v != "" {
		b.Left = v
	}
	if v := cfg.Input.Bindings.Right; v != "" {
		b.Right = v
	}
	if v := cfg.Input.Bindings.Up; v != "" {
		b.Up = v
	}
	if v := cfg.Input.Bindings.Down; v != "" {
		b.Down = v
	}
	if v := cfg.Input.Bindings.FastDown; v != "" {
		b.FastDown = v
	}
	return b
}
