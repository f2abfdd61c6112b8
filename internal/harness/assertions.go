package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/simcore/internal/trace"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "%s\n", event)
		}
	}
	return buf.String()
}

// assertSyncCount checks how many snapshots an object received.
func assertSyncCount(result *Result, a Assertion) error {
	id, ok := result.ObjectIDs[a.Object]
	if !ok {
		return fmt.Errorf("sync_count: unknown object %q", a.Object)
	}

	count := 0
	for _, ev := range result.Trace {
		if ev.Kind == trace.KindSync && ev.Fields["object_id"] == id {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertSyncCount,
			Expected: fmt.Sprintf("%d syncs of %s", a.Count, a.Object),
			Actual:   fmt.Sprintf("%d syncs", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertSyncOrder checks the exact order of snapshots within one frame.
func assertSyncOrder(result *Result, a Assertion) error {
	var got []string
	for _, ev := range result.Trace {
		if ev.Kind != trace.KindSync || ev.Frame != a.Frame {
			continue
		}
		id, _ := ev.Fields["object_id"].(uint64)
		name := result.objectName(id)
		if name == "" {
			name = fmt.Sprintf("#%d", id)
		}
		got = append(got, name)
	}

	if !slices.Equal(got, a.Objects) {
		return &AssertionError{
			Type:     AssertSyncOrder,
			Expected: fmt.Sprintf("frame %d syncs %v", a.Frame, a.Objects),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertCommandCount counts played commands, optionally filtered by state
// and auto-resolution.
func assertCommandCount(result *Result, a Assertion) error {
	count := 0
	for _, ev := range result.Trace {
		if ev.Kind != trace.KindCommand {
			continue
		}
		if a.State != "" && ev.Fields["state"] != a.State {
			continue
		}
		if a.AutoResolved && ev.Fields["auto_resolved"] != true {
			continue
		}
		count++
	}

	if count != a.Count {
		what := "commands"
		if a.State != "" {
			what = a.State + " " + what
		}
		if a.AutoResolved {
			what = "auto-resolved " + what
		}
		return &AssertionError{
			Type:     AssertCommandCount,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertNotified checks the notification order.
func assertNotified(result *Result, a Assertion) error {
	if len(result.Notified) == 0 && len(a.CallbackIDs) == 0 {
		return nil
	}
	if !slices.Equal(result.Notified, a.CallbackIDs) {
		return &AssertionError{
			Type:     AssertNotified,
			Expected: fmt.Sprintf("%v", a.CallbackIDs),
			Actual:   fmt.Sprintf("%v", result.Notified),
		}
	}
	return nil
}

// assertCoreState compares the core side of one object using subset
// semantics: only fields set in the expectation are checked.
func assertCoreState(result *Result, a Assertion) error {
	snap, ok := result.State[a.Object]
	if !ok {
		return &AssertionError{
			Type:     AssertCoreState,
			Expected: fmt.Sprintf("object %s alive after the last frame", a.Object),
			Actual:   "not found",
		}
	}

	var diffs []string
	want := a.Expect
	if want.Color != nil && !slices.Equal(want.Color, snap.Color) {
		diffs = append(diffs, fmt.Sprintf("color=%v want %v", snap.Color, want.Color))
	}
	if want.Shader != nil && *want.Shader != snap.Shader {
		diffs = append(diffs, fmt.Sprintf("shader=%q want %q", snap.Shader, *want.Shader))
	}
	if want.Position != nil && !slices.Equal(want.Position, snap.Position) {
		diffs = append(diffs, fmt.Sprintf("position=%v want %v", snap.Position, want.Position))
	}
	if want.Material != nil && *want.Material != snap.Material {
		diffs = append(diffs, fmt.Sprintf("material=%q want %q", snap.Material, *want.Material))
	}
	if want.Layer != nil && *want.Layer != snap.Layer {
		diffs = append(diffs, fmt.Sprintf("layer=%d want %d", snap.Layer, *want.Layer))
	}
	if want.Syncs != nil && *want.Syncs != snap.Syncs {
		diffs = append(diffs, fmt.Sprintf("syncs=%d want %d", snap.Syncs, *want.Syncs))
	}

	if len(diffs) > 0 {
		return &AssertionError{
			Type:     AssertCoreState,
			Expected: fmt.Sprintf("%s %s", snap.Kind, a.Object),
			Actual:   strings.Join(diffs, ", "),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSyncCount:
			err = assertSyncCount(result, assertion)
		case AssertSyncOrder:
			err = assertSyncOrder(result, assertion)
		case AssertCommandCount:
			err = assertCommandCount(result, assertion)
		case AssertNotified:
			err = assertNotified(result, assertion)
		case AssertCoreState:
			err = assertCoreState(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
