package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one frame-by-frame test of the engine.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID fixes the run id. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Config overrides engine defaults.
	Config *ConfigOverrides `yaml:"config,omitempty"`

	// Setup ops run before the first frame and ride along with its batch.
	Setup []Op `yaml:"setup,omitempty"`

	// Frames run in order; each applies its ops, then runs one frame.
	Frames []FrameStep `yaml:"frames"`

	// Assertions validate the run once every frame has played back.
	Assertions []Assertion `yaml:"assertions"`
}

// ConfigOverrides are the config fields a scenario may change.
type ConfigOverrides struct {
	ThreadChecks    *bool `yaml:"thread_checks,omitempty"`
	AllocChunkSize  int   `yaml:"alloc_chunk_size,omitempty"`
	PoolCapacity    int   `yaml:"pool_capacity,omitempty"`
	InitialCapacity int   `yaml:"initial_capacity,omitempty"`
}

// Op is one scenario action. Which fields apply depends on Op.
type Op struct {
	Op       string    `yaml:"op"`
	Name     string    `yaml:"name,omitempty"`
	Material string    `yaml:"material,omitempty"`
	Color    []float32 `yaml:"color,omitempty"`
	Shader   string    `yaml:"shader,omitempty"`
	Position []float32 `yaml:"position,omitempty"`
	Layer    uint32    `yaml:"layer,omitempty"`

	// command
	CallbackID   uint32 `yaml:"callback_id,omitempty"`
	Notify       bool   `yaml:"notify,omitempty"`
	Returns      bool   `yaml:"returns,omitempty"`
	LeavePending bool   `yaml:"leave_pending,omitempty"`

	// defer
	Then []Op `yaml:"then,omitempty"`
}

// Op kinds.
const (
	OpMaterial    = "material"
	OpRenderable  = "renderable"
	OpSetColor    = "set_color"
	OpSetShader   = "set_shader"
	OpSetPosition = "set_position"
	OpSetLayer    = "set_layer"
	OpSetMaterial = "set_material"
	OpRemove      = "remove"
	OpSyncNow     = "sync_now"
	OpCommand     = "command"
	OpDefer       = "defer"
)

// FrameStep is one frame.
type FrameStep struct {
	Ops    []Op         `yaml:"ops,omitempty"`
	Expect *FrameExpect `yaml:"expect,omitempty"`
}

// FrameExpect checks a frame's summary. Nil fields are not checked.
type FrameExpect struct {
	Synced   *int `yaml:"synced,omitempty"`
	Commands *int `yaml:"commands,omitempty"`
	Deferred *int `yaml:"deferred,omitempty"`
}

// Assertion validates the finished run.
type Assertion struct {
	// Type selects the check: sync_count, sync_order, command_count,
	// notified or core_state.
	Type string `yaml:"type"`

	// Object names the object (sync_count, core_state).
	Object string `yaml:"object,omitempty"`

	// Count is the expected number (sync_count, command_count).
	Count int `yaml:"count,omitempty"`

	// Frame selects the frame (sync_order).
	Frame int64 `yaml:"frame,omitempty"`

	// Objects is the expected order (sync_order).
	Objects []string `yaml:"objects,omitempty"`

	// State filters commands by state (command_count). Empty means any.
	State string `yaml:"state,omitempty"`

	// AutoResolved restricts command_count to auto-resolved commands.
	AutoResolved bool `yaml:"auto_resolved,omitempty"`

	// CallbackIDs is the expected notification order (notified).
	CallbackIDs []uint32 `yaml:"callback_ids,omitempty"`

	// Expect is the expected core state (core_state). Subset match.
	Expect *CoreExpect `yaml:"expect,omitempty"`
}

// CoreExpect lists core fields to compare. Nil fields are not checked.
type CoreExpect struct {
	Color    []float32 `yaml:"color,omitempty"`
	Shader   *string   `yaml:"shader,omitempty"`
	Position []float32 `yaml:"position,omitempty"`
	Material *string   `yaml:"material,omitempty"`
	Layer    *uint32   `yaml:"layer,omitempty"`
	Syncs    *int      `yaml:"syncs,omitempty"`
}

// Assertion type constants.
const (
	AssertSyncCount    = "sync_count"
	AssertSyncOrder    = "sync_order"
	AssertCommandCount = "command_count"
	AssertNotified     = "notified"
	AssertCoreState    = "core_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Frames) == 0 {
		return fmt.Errorf("frames list is required and must be non-empty")
	}

	for i, op := range s.Setup {
		if err := validateOp(fmt.Sprintf("setup[%d]", i), op); err != nil {
			return err
		}
	}
	for i, f := range s.Frames {
		for j, op := range f.Ops {
			if err := validateOp(fmt.Sprintf("frames[%d].ops[%d]", i, j), op); err != nil {
				return err
			}
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateOp(where string, op Op) error {
	switch op.Op {
	case OpMaterial, OpRenderable, OpRemove, OpSyncNow:
		if op.Name == "" {
			return fmt.Errorf("%s: name is required for %s", where, op.Op)
		}
	case OpSetColor:
		if op.Name == "" || len(op.Color) != 4 {
			return fmt.Errorf("%s: set_color needs name and a 4-element color", where)
		}
	case OpSetShader:
		if op.Name == "" || op.Shader == "" {
			return fmt.Errorf("%s: set_shader needs name and shader", where)
		}
	case OpSetPosition:
		if op.Name == "" || len(op.Position) != 3 {
			return fmt.Errorf("%s: set_position needs name and a 3-element position", where)
		}
	case OpSetLayer, OpSetMaterial:
		if op.Name == "" {
			return fmt.Errorf("%s: name is required for %s", where, op.Op)
		}
	case OpCommand:
		if op.LeavePending && !op.Returns {
			return fmt.Errorf("%s: leave_pending requires returns", where)
		}
	case OpDefer:
		if len(op.Then) == 0 {
			return fmt.Errorf("%s: defer needs a non-empty then list", where)
		}
		for i, inner := range op.Then {
			if err := validateOp(fmt.Sprintf("%s.then[%d]", where, i), inner); err != nil {
				return err
			}
		}
	case "":
		return fmt.Errorf("%s: op is required", where)
	default:
		return fmt.Errorf("%s: unknown op %q", where, op.Op)
	}
	if len(op.Color) != 0 && len(op.Color) != 4 {
		return fmt.Errorf("%s: color must have 4 elements", where)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSyncCount:
		if a.Object == "" {
			return fmt.Errorf("assertions[%d]: object is required for sync_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for sync_count", index)
		}
	case AssertSyncOrder:
		if a.Frame <= 0 {
			return fmt.Errorf("assertions[%d]: frame is required for sync_order", index)
		}
	case AssertCommandCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for command_count", index)
		}
	case AssertNotified:
		// An empty list asserts that nothing was notified.
	case AssertCoreState:
		if a.Object == "" {
			return fmt.Errorf("assertions[%d]: object is required for core_state", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for core_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
