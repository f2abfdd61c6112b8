package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/simcore/internal/config"
	"github.com/roach88/simcore/internal/engine"
	"github.com/roach88/simcore/internal/journal"
	"github.com/roach88/simcore/internal/scene"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config        string
	Database      string
	Frames        int
	FrameInterval time.Duration

	// RunIDGenerator overrides the run id source (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator engine.RunIDGenerator
}

// RunSummary is the run command's result.
type RunSummary struct {
	RunID      string `json:"run_id"`
	ConfigHash string `json:"config_hash"`
	Frames     int64  `json:"frames"`
	Objects    int    `json:"objects"`
	Journal    string `json:"journal,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo scene through the engine",
		Long: `Run the demo scene for a number of frames.

Each frame runs deferred calls, syncs dirty objects to the core goroutine and
submits the frame's commands. With --db every played command and every
snapshot is journaled and can be inspected with "simcore trace".

--frames 0 runs until interrupted.

Example:
  simcore run --frames 120
  simcore run --config simcore.cue --db ./journal.db --frame-interval 16ms`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to a CUE config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (overrides journal.path)")
	cmd.Flags().IntVar(&opts.Frames, "frames", 0, "frames to run (overrides frames; 0 runs until interrupted)")
	cmd.Flags().DurationVar(&opts.FrameInterval, "frame-interval", 0, "minimum time between frames (0 runs back to back)")

	return cmd
}

func runDemo(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadRunConfig(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E_CONFIG", "failed to load config", err)
	}

	logger := newLogger(opts.RootOptions, cfg.SlogLevel())
	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.RunIDGenerator != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDGenerator))
	}

	if cfg.Journal.Path != "" {
		logger.Info("opening journal", "path", cfg.Journal.Path)
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return formatter.Fail(ExitCommandError, "E_JOURNAL", "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		engineOpts = append(engineOpts, engine.WithJournal(j))
	}

	eng, err := engine.New(cfg, engineOpts...)
	if err != nil {
		return formatter.Fail(ExitFailure, "E_ENGINE", "failed to create engine", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := eng.Start(ctx); err != nil {
		return formatter.Fail(ExitFailure, "E_ENGINE", "failed to start engine", err)
	}

	sc := scene.New(eng.Objects(), eng.Accessor())
	demo, err := scene.NewDemo(sc)
	if err != nil {
		sc.Clear()
		_ = eng.Shutdown(context.Background())
		return formatter.Fail(ExitFailure, "E_SCENE", "failed to build demo scene", err)
	}
	objects := sc.Len()

	var ticker engine.Ticker
	if opts.FrameInterval > 0 {
		ticker = engine.NewBasicTicker(opts.FrameInterval)
	}

	runErr := eng.Run(ctx, cfg.Frames, ticker, demo.Step)
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		runErr = nil
	}

	sc.Clear()
	shutdownErr := eng.Shutdown(context.Background())
	if err := errors.Join(runErr, shutdownErr); err != nil {
		return formatter.Fail(ExitFailure, "E_ENGINE", "engine error", err)
	}

	summary := RunSummary{
		RunID:      eng.RunID(),
		ConfigHash: eng.ConfigHash(),
		Frames:     eng.CurrentFrame(),
		Objects:    objects,
		Journal:    cfg.Journal.Path,
	}
	if opts.Format == "json" {
		return formatter.Success(summary)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run %s: %d frames, %d objects\n", summary.RunID, summary.Frames, summary.Objects)
	if summary.Journal != "" {
		fmt.Fprintf(w, "journal: %s\n", summary.Journal)
	}
	return nil
}

// loadRunConfig resolves the config: file (or defaults) with environment
// overrides, then flags.
func loadRunConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		if err := config.ApplyEnv(&cfg); err != nil {
			return config.Config{}, err
		}
	}

	if cmd.Flags().Changed("db") {
		cfg.Journal.Path = opts.Database
	}
	if cmd.Flags().Changed("frames") {
		if opts.Frames < 0 {
			return config.Config{}, fmt.Errorf("--frames must be >= 0, got %d", opts.Frames)
		}
		cfg.Frames = opts.Frames
	}
	slog.Debug("config resolved", "frames", cfg.Frames, "journal", cfg.Journal.Path)
	return cfg, nil
}
