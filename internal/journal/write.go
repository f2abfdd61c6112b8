package journal

import (
	"context"
	"fmt"
)

// WriteRun inserts a run and assigns it the next seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (j *Journal) WriteRun(ctx context.Context, run Run) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, seq, config_hash)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.ConfigHash)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteBatch inserts every row of b in one transaction.
// Duplicate rows are ignored, so re-writing a batch is harmless.
// The referenced runs must exist (foreign key constraint).
func (j *Journal) WriteBatch(ctx context.Context, b Batch) error {
	if b.IsEmpty() {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write batch: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, f := range b.Frames {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO frames (run_id, frame, deferred_calls, synced_objects, commands)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, f.RunID, f.Frame, f.DeferredCalls, f.SyncedObjects, f.Commands); err != nil {
			return fmt.Errorf("write frame %d: %w", f.Frame, err)
		}
	}

	for _, c := range b.Commands {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO commands
			(run_id, ord, frame, queue_idx, seq, callback_id, returns_value, notified, auto_resolved, state)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			c.RunID,
			c.Ord,
			c.Frame,
			c.QueueIdx,
			c.Seq,
			c.CallbackID,
			c.ReturnsValue,
			c.Notified,
			c.AutoResolved,
			c.State,
		); err != nil {
			return fmt.Errorf("write command %d: %w", c.Ord, err)
		}
	}

	for _, s := range b.Syncs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO syncs (run_id, ord, frame, object_id, flags, size)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, s.RunID, s.Ord, s.Frame, int64(s.ObjectID), s.Flags, s.Size); err != nil {
			return fmt.Errorf("write sync %d: %w", s.Ord, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write batch: commit: %w", err)
	}
	return nil
}
