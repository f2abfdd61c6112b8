package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simcore/internal/testutil"
)

// runDemoInto runs the demo for frames into a journal at dbPath.
func runDemoInto(t *testing.T, dbPath string, frames string, format string) string {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := newRunCommand(&RunOptions{
		RootOptions:    &RootOptions{Format: format},
		RunIDGenerator: testutil.NewFixedRunIDGenerator("test-run"),
	})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	args := []string{"--frames", frames}
	if dbPath != "" {
		args = append(args, "--db", dbPath)
	}
	cmd.SetArgs(args)

	require.NoError(t, cmd.Execute())
	return buf.String()
}

func TestRun_DemoText(t *testing.T) {
	out := runDemoInto(t, "", "3", "text")
	assert.Contains(t, out, "run test-run: 3 frames, 5 objects")
	assert.NotContains(t, out, "journal:")
}

func TestRun_DemoJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	out := runDemoInto(t, dbPath, "2", "json")

	var resp struct {
		Status string     `json:"status"`
		Data   RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-run", resp.Data.RunID)
	assert.Equal(t, int64(2), resp.Data.Frames)
	assert.Equal(t, 5, resp.Data.Objects)
	assert.Equal(t, dbPath, resp.Data.Journal)
	assert.Len(t, resp.Data.ConfigHash, 64)
}

func TestRun_BadConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--config", "../config/testdata/unknown_field.cue", "--frames", "1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E_CONFIG]")
}

func TestRun_NegativeFrames(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--frames", "-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--frames must be >= 0")
}
