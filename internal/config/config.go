// Package config loads engine configuration from CUE files.
//
// A config file is unified with the embedded #Config schema, so every field
// is optional and unknown fields are rejected. Environment variables
// override the file:
//
//	SIMCORE_LOG_LEVEL      log.level
//	SIMCORE_JOURNAL_PATH   journal.path
//	SIMCORE_FRAMES         frames
//	SIMCORE_THREAD_CHECKS  thread_checks
//	SIMCORE_BREAKPOINTS    breakpoints.points, as "queue:command" pairs
//	                       separated by spaces; also enables breakpoints
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	jlconfig "github.com/JeremyLoy/config"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded #Config.
type Config struct {
	Queue        QueueConfig       `json:"queue"`
	Breakpoints  BreakpointsConfig `json:"breakpoints"`
	ThreadChecks bool              `json:"thread_checks"`
	Journal      JournalConfig     `json:"journal"`
	Log          LogConfig         `json:"log"`
	Alloc        AllocConfig       `json:"alloc"`
	Frames       int               `json:"frames"`
}

// QueueConfig sizes command buffers and their pool.
type QueueConfig struct {
	InitialCapacity int `json:"initial_capacity"`
	PoolCapacity    int `json:"pool_capacity"`
}

// BreakpointsConfig lists (queue, command) pairs that abort on enqueue.
type BreakpointsConfig struct {
	Enabled bool         `json:"enabled"`
	Points  []Breakpoint `json:"points"`
}

// Breakpoint is one (queue index, command index) pair.
type Breakpoint struct {
	Queue   uint32 `json:"queue"`
	Command uint32 `json:"command"`
}

// JournalConfig locates the playback journal. An empty path disables it.
type JournalConfig struct {
	Path string `json:"path"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `json:"level"`
}

// AllocConfig sizes the per-frame snapshot allocator.
type AllocConfig struct {
	ChunkSize int `json:"chunk_size"`
}

// SlogLevel maps Log.Level to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error is a schema violation, with the CUE position when known.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Parse(nil, "defaults.cue")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema is invalid: %v", err))
	}
	return cfg
}

// Load reads, validates and decodes the CUE file at path, then applies
// environment overrides.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, path)
	if err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse validates src against #Config and decodes it. A nil src yields the
// defaults. filename is used in error positions only.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	if len(src) == 0 {
		src = []byte("{}")
	}
	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, convertError(err)
	}
	value := def.Unify(user)

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Config{}, convertError(err)
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// convertError keeps the first CUE error with its position.
func convertError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}
	first := errs[0]
	msg := first.Error()
	if pos := first.Position(); pos.IsValid() {
		return &Error{Path: fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column()), Message: msg}
	}
	return &Error{Message: msg}
}

type envOverrides struct {
	LogLevel     string   `config:"SIMCORE_LOG_LEVEL"`
	JournalPath  string   `config:"SIMCORE_JOURNAL_PATH"`
	Frames       int      `config:"SIMCORE_FRAMES"`
	ThreadChecks bool     `config:"SIMCORE_THREAD_CHECKS"`
	Breakpoints  []string `config:"SIMCORE_BREAKPOINTS"`
}

// ApplyEnv overrides cfg with any SIMCORE_* variables that are set.
func ApplyEnv(cfg *Config) error {
	env := envOverrides{
		LogLevel:     cfg.Log.Level,
		JournalPath:  cfg.Journal.Path,
		Frames:       cfg.Frames,
		ThreadChecks: cfg.ThreadChecks,
	}
	if err := jlconfig.FromEnv().To(&env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	switch env.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &Error{Path: "SIMCORE_LOG_LEVEL", Message: fmt.Sprintf("invalid level %q", env.LogLevel)}
	}
	if env.Frames < 0 {
		return &Error{Path: "SIMCORE_FRAMES", Message: fmt.Sprintf("must be >= 0, got %d", env.Frames)}
	}

	cfg.Log.Level = env.LogLevel
	cfg.Journal.Path = env.JournalPath
	cfg.Frames = env.Frames
	cfg.ThreadChecks = env.ThreadChecks

	if len(env.Breakpoints) > 0 {
		points, err := ParseBreakpoints(env.Breakpoints)
		if err != nil {
			return err
		}
		cfg.Breakpoints.Enabled = true
		cfg.Breakpoints.Points = append(cfg.Breakpoints.Points, points...)
	}
	return nil
}

// ParseBreakpoints parses "queue:command" pairs.
func ParseBreakpoints(pairs []string) ([]Breakpoint, error) {
	out := make([]Breakpoint, 0, len(pairs))
	for _, p := range pairs {
		q, c, ok := strings.Cut(strings.TrimSpace(p), ":")
		if !ok {
			return nil, &Error{Path: "SIMCORE_BREAKPOINTS", Message: fmt.Sprintf("expected queue:command, got %q", p)}
		}
		qi, err := strconv.ParseUint(q, 10, 32)
		if err != nil {
			return nil, &Error{Path: "SIMCORE_BREAKPOINTS", Message: fmt.Sprintf("bad queue index %q", q)}
		}
		ci, err := strconv.ParseUint(c, 10, 32)
		if err != nil {
			return nil, &Error{Path: "SIMCORE_BREAKPOINTS", Message: fmt.Sprintf("bad command index %q", c)}
		}
		out = append(out, Breakpoint{Queue: uint32(qi), Command: uint32(ci)})
	}
	return out, nil
}
