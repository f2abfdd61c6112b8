package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AllFrames selects every frame in the Read* functions that take a frame.
const AllFrames int64 = -1

// ReadRuns returns every run ordered by seq.
// Returns an empty slice (not nil) for an empty journal.
func (j *Journal) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, seq, config_hash FROM runs ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Seq, &r.ConfigHash); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run, or ErrRunNotFound.
func (j *Journal) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := j.db.QueryRowContext(ctx, `
		SELECT id, seq, config_hash FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Seq, &r.ConfigHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// LatestRun returns the run with the highest seq, or ErrRunNotFound.
func (j *Journal) LatestRun(ctx context.Context) (Run, error) {
	var r Run
	err := j.db.QueryRowContext(ctx, `
		SELECT id, seq, config_hash FROM runs ORDER BY seq DESC LIMIT 1
	`).Scan(&r.ID, &r.Seq, &r.ConfigHash)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("read latest run: %w", err)
	}
	return r, nil
}

// ReadFrames returns the frames of a run ordered by frame number.
func (j *Journal) ReadFrames(ctx context.Context, runID string) ([]Frame, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, frame, deferred_calls, synced_objects, commands
		FROM frames
		WHERE run_id = ?
		ORDER BY frame ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	frames := []Frame{}
	for rows.Next() {
		var f Frame
		if err := rows.Scan(&f.RunID, &f.Frame, &f.DeferredCalls, &f.SyncedObjects, &f.Commands); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// ReadCommands returns the commands of a run in playback order, limited to
// one frame unless frame is AllFrames.
func (j *Journal) ReadCommands(ctx context.Context, runID string, frame int64) ([]Command, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, ord, frame, queue_idx, seq, callback_id, returns_value, notified, auto_resolved, state
		FROM commands
		WHERE run_id = ? AND (? < 0 OR frame = ?)
		ORDER BY ord ASC
	`, runID, frame, frame)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	cmds := []Command{}
	for rows.Next() {
		var c Command
		if err := rows.Scan(
			&c.RunID,
			&c.Ord,
			&c.Frame,
			&c.QueueIdx,
			&c.Seq,
			&c.CallbackID,
			&c.ReturnsValue,
			&c.Notified,
			&c.AutoResolved,
			&c.State,
		); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		cmds = append(cmds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commands: %w", err)
	}
	return cmds, nil
}

// ReadSyncs returns the snapshots of a run in queue order, limited to one
// frame unless frame is AllFrames.
func (j *Journal) ReadSyncs(ctx context.Context, runID string, frame int64) ([]Sync, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, ord, frame, object_id, flags, size
		FROM syncs
		WHERE run_id = ? AND (? < 0 OR frame = ?)
		ORDER BY ord ASC
	`, runID, frame, frame)
	if err != nil {
		return nil, fmt.Errorf("query syncs: %w", err)
	}
	defer rows.Close()

	syncs := []Sync{}
	for rows.Next() {
		var s Sync
		var objectID int64
		if err := rows.Scan(&s.RunID, &s.Ord, &s.Frame, &objectID, &s.Flags, &s.Size); err != nil {
			return nil, fmt.Errorf("scan sync: %w", err)
		}
		s.ObjectID = uint64(objectID)
		syncs = append(syncs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate syncs: %w", err)
	}
	return syncs, nil
}
