package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestJournal creates a new journal in a temp dir.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

// createTestRun inserts a run and returns its id.
func createTestRun(t *testing.T, j *Journal, id string) string {
	t.Helper()
	require.NoError(t, j.WriteRun(context.Background(), Run{ID: id, ConfigHash: "cfg-" + id}))
	return id
}
