package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/simcore/internal/harness"
	"github.com/roach88/simcore/internal/trace"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Golden string // golden trace directory, empty to skip comparison
	Update bool   // regenerate golden files
	Filter string // scenario name filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// ScenarioReport holds the overall result.
type ScenarioReport struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file-or-dir>...",
		Short: "Run YAML frame scenarios",
		Long: `Run frame scenarios against a fresh engine and check their assertions.

Directories contribute their *.yaml and *.yml files. With --golden each
trace is also compared against <golden>/<name>.golden; --update rewrites
those files instead.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  simcore scenario ./scenarios
  simcore scenario ./scenarios --filter "material_*"
  simcore scenario ./scenarios --golden ./golden --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden trace files")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(opts *ScenarioOptions, paths []string, cmd *cobra.Command) error {
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
	}

	files, err := harness.DiscoverScenarios(paths...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	report := ScenarioReport{Scenarios: make([]ScenarioResult, 0, len(files))}
	for _, file := range files {
		res, skipped := runScenarioFile(opts, file, cmd)
		if skipped {
			continue
		}
		report.Scenarios = append(report.Scenarios, res)
		report.Total++
		if res.Pass {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if opts.Format == "json" {
		return outputScenarioJSON(opts, cmd, report)
	}
	return outputScenarioText(cmd, report)
}

// runScenarioFile runs one file. skipped is true when the filter rejects it.
func runScenarioFile(opts *ScenarioOptions, file string, cmd *cobra.Command) (res ScenarioResult, skipped bool) {
	w := cmd.OutOrStdout()
	text := opts.Format != "json"

	fail := func(name string, errs ...string) ScenarioResult {
		if text {
			fmt.Fprintf(w, "✗ %s\n", name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: name, Errors: errs}
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail(filepath.Base(file), fmt.Sprintf("failed to load scenario: %v", err)), false
	}
	if opts.Filter != "" {
		if ok, _ := filepath.Match(opts.Filter, scenario.Name); !ok {
			return ScenarioResult{}, true
		}
	}

	var runOpts []harness.Option
	if opts.Verbose {
		runOpts = append(runOpts, harness.WithLogger(newLogger(opts.RootOptions, 0)))
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution failed: %v", err)), false
	}

	if opts.Golden != "" {
		if err := checkGolden(opts, scenario.Name, result); err != nil {
			return fail(scenario.Name, err.Error()), false
		}
	}

	if !result.Pass {
		return fail(scenario.Name, result.Errors...), false
	}
	if text {
		suffix := ""
		if opts.Update {
			suffix = " (golden updated)"
		}
		fmt.Fprintf(w, "✓ %s%s\n", scenario.Name, suffix)
	}
	return ScenarioResult{Name: scenario.Name, Pass: true}, false
}

// checkGolden compares or rewrites <golden>/<name>.golden.
func checkGolden(opts *ScenarioOptions, name string, result *harness.Result) error {
	data, err := trace.Marshal(result.Trace)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	path := filepath.Join(opts.Golden, name+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.Golden, 0755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		return fmt.Errorf("trace does not match %s (run with --update to regenerate)", path)
	}
	return nil
}

func outputScenarioJSON(opts *ScenarioOptions, cmd *cobra.Command, report ScenarioReport) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	resp := CLIResponse{Status: "ok", Data: report}
	if report.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_SCENARIO_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", report.Failed),
		}
	}
	if err := formatter.encode(resp); err != nil {
		return err
	}

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	return nil
}

func outputScenarioText(cmd *cobra.Command, report ScenarioReport) error {
	w := cmd.OutOrStdout()

	if report.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Scenario Summary: %d passed, %d failed, %d total\n", report.Passed, report.Failed, report.Total)

	if report.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
