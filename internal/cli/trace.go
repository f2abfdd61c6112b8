package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/simcore/internal/journal"
	"github.com/roach88/simcore/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // empty selects the latest run
	Frame    int64  // journal.AllFrames for every frame
	Runs     bool   // list runs instead
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a journaled run",
		Long: `Print the frames, snapshots and played commands of a journaled run.

Events are ordered by frame: the frame summary, then its snapshots, then
its commands. Commands played outside any frame (shutdown teardown) are
listed under frame 0. With --format json each event is one canonical JSON
line, the same bytes the golden traces hold.

Examples:
  simcore trace --db ./journal.db
  simcore trace --db ./journal.db --run 0190... --frame 12
  simcore trace --db ./journal.db --runs`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: latest run)")
	cmd.Flags().Int64Var(&opts.Frame, "frame", journal.AllFrames, "only this frame")
	cmd.Flags().BoolVar(&opts.Runs, "runs", false, "list runs")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Runs {
		return listRuns(ctx, opts, j, cmd)
	}

	var run journal.Run
	if opts.RunID == "" {
		run, err = j.LatestRun(ctx)
	} else {
		run, err = j.ReadRun(ctx, opts.RunID)
	}
	if errors.Is(err, journal.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read run", err)
	}

	events, err := trace.Load(ctx, j, run.ID, opts.Frame)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load trace", err)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return trace.Write(w, events)
	}

	digest, err := trace.Digest(events)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to hash trace", err)
	}
	fmt.Fprintf(w, "run %s (config %s)\n", run.ID, shortHash(run.ConfigHash))
	fmt.Fprintf(w, "digest %s\n\n", digest)
	if len(events) == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintln(w, ev.String())
	}
	return nil
}

func listRuns(ctx context.Context, opts *TraceOptions, j *journal.Journal, cmd *cobra.Command) error {
	runs, err := j.ReadRuns(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read runs", err)
	}

	if opts.Format == "json" {
		out := make([]map[string]any, len(runs))
		for i, r := range runs {
			out[i] = map[string]any{"id": r.ID, "seq": r.Seq, "config_hash": r.ConfigHash}
		}
		return newFormatter(opts.RootOptions, cmd).Success(out)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%3d  %s  config %s\n", r.Seq, r.ID, shortHash(r.ConfigHash))
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
