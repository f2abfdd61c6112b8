package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/simcore/internal/config"
	"github.com/roach88/simcore/internal/trace"
)

// ValidateResult is the validate command's JSON payload.
type ValidateResult struct {
	Valid      bool           `json:"valid"`
	ConfigHash string         `json:"config_hash,omitempty"`
	Config     *config.Config `json:"config,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a config file against the schema",
		Long: `Validate a CUE config file against the embedded #Config schema.

Unknown fields, out-of-range values and wrong types are reported with their
file position. SIMCORE_* environment overrides are applied and checked too.

Example:
  simcore validate ./simcore.cue
  simcore validate ./simcore.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(path)
	if err != nil {
		var cfgErr *config.Error
		if errors.As(err, &cfgErr) {
			// Schema violations are validation failures, not command errors.
			_ = formatter.Error("E_CONFIG_INVALID", cfgErr.Error(), nil)
			return WrapExitError(ExitFailure, "config invalid", err)
		}
		return formatter.Fail(ExitCommandError, "E_CONFIG", "failed to load config", err)
	}

	hash, err := trace.ConfigHash(cfg)
	if err != nil {
		return formatter.Fail(ExitFailure, "E_CONFIG", "failed to hash config", err)
	}

	formatter.VerboseLog("config hash %s", hash)
	if opts.Format == "json" {
		return formatter.Success(ValidateResult{Valid: true, ConfigHash: hash, Config: &cfg})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s valid (frames=%d, thread_checks=%t, breakpoints=%d)\n",
		path, cfg.Frames, cfg.ThreadChecks, len(cfg.Breakpoints.Points))
	return nil
}
