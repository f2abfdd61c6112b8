package trace

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/roach88/simcore/internal/journal"
)

// Kind names an event type.
type Kind string

const (
	KindFrame   Kind = "frame"
	KindSync    Kind = "sync"
	KindCommand Kind = "command"
)

// Event is one trace line.
type Event struct {
	Kind   Kind
	Frame  int64
	Ord    int64 // recording order within the kind; 0 for frame summaries
	Fields Object
}

// Object returns the event as a canonical JSON object.
func (e Event) Object() Object {
	obj := make(Object, len(e.Fields)+3)
	for k, v := range e.Fields {
		obj[k] = v
	}
	obj["kind"] = string(e.Kind)
	obj["frame"] = e.Frame
	if e.Kind != KindFrame {
		obj["ord"] = e.Ord
	}
	return obj
}

// String formats the event for humans.
func (e Event) String() string {
	switch e.Kind {
	case KindFrame:
		return fmt.Sprintf("frame %d: deferred=%v synced=%v commands=%v",
			e.Frame, e.Fields["deferred_calls"], e.Fields["synced_objects"], e.Fields["commands"])
	case KindSync:
		return fmt.Sprintf("  sync #%d object=%v flags=%#x size=%v",
			e.Ord, e.Fields["object_id"], e.Fields["flags"], e.Fields["size"])
	case KindCommand:
		var tags []string
		for _, tag := range []string{"returns_value", "notified", "auto_resolved"} {
			if e.Fields[tag] == true {
				tags = append(tags, tag)
			}
		}
		s := fmt.Sprintf("  command #%d queue=%v seq=%v %v",
			e.Ord, e.Fields["queue"], e.Fields["seq"], e.Fields["state"])
		if len(tags) > 0 {
			s += " [" + strings.Join(tags, ",") + "]"
		}
		return s
	default:
		return fmt.Sprintf("%s %d", e.Kind, e.Frame)
	}
}

// Build orders the rows of b into events: by frame, then the frame
// summary, its syncs and its commands, each in recording order. Commands
// outside any frame come first under frame 0.
func Build(b journal.Batch) []Event {
	events := make([]Event, 0, len(b.Frames)+len(b.Syncs)+len(b.Commands))
	for _, f := range b.Frames {
		events = append(events, Event{
			Kind:  KindFrame,
			Frame: f.Frame,
			Fields: Object{
				"deferred_calls": f.DeferredCalls,
				"synced_objects": f.SyncedObjects,
				"commands":       f.Commands,
			},
		})
	}
	for _, s := range b.Syncs {
		events = append(events, Event{
			Kind:  KindSync,
			Frame: s.Frame,
			Ord:   s.Ord,
			Fields: Object{
				"object_id": s.ObjectID,
				"flags":     s.Flags,
				"size":      s.Size,
			},
		})
	}
	for _, c := range b.Commands {
		fields := Object{
			"queue": c.QueueIdx,
			"seq":   c.Seq,
			"state": c.State,
		}
		if c.CallbackID != 0 {
			fields["callback_id"] = c.CallbackID
		}
		if c.ReturnsValue {
			fields["returns_value"] = true
		}
		if c.Notified {
			fields["notified"] = true
		}
		if c.AutoResolved {
			fields["auto_resolved"] = true
		}
		events = append(events, Event{Kind: KindCommand, Frame: c.Frame, Ord: c.Ord, Fields: fields})
	}

	slices.SortStableFunc(events, func(a, b Event) int {
		if a.Frame != b.Frame {
			return compareInt(a.Frame, b.Frame)
		}
		if a.Kind != b.Kind {
			return kindRank(a.Kind) - kindRank(b.Kind)
		}
		return compareInt(a.Ord, b.Ord)
	})
	return events
}

func kindRank(k Kind) int {
	switch k {
	case KindFrame:
		return 0
	case KindSync:
		return 1
	default:
		return 2
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Load reads one run from j, or one frame of it unless frame is
// journal.AllFrames.
func Load(ctx context.Context, j *journal.Journal, runID string, frame int64) ([]Event, error) {
	frames, err := j.ReadFrames(ctx, runID)
	if err != nil {
		return nil, err
	}
	if frame != journal.AllFrames {
		frames = slices.DeleteFunc(frames, func(f journal.Frame) bool { return f.Frame != frame })
	}
	cmds, err := j.ReadCommands(ctx, runID, frame)
	if err != nil {
		return nil, err
	}
	syncs, err := j.ReadSyncs(ctx, runID, frame)
	if err != nil {
		return nil, err
	}
	return Build(journal.Batch{Frames: frames, Commands: cmds, Syncs: syncs}), nil
}

// Write writes one canonical JSON object per line.
func Write(w io.Writer, events []Event) error {
	bw := bufio.NewWriter(w)
	for i, e := range events {
		line, err := MarshalCanonical(e.Object())
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		bw.Write(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Marshal returns the events as written by Write.
func Marshal(events []Event) ([]byte, error) {
	var sb strings.Builder
	if err := Write(&sb, events); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// Digest is the SHA-256 of the canonical trace, domain separated.
func Digest(events []Event) (string, error) {
	data, err := Marshal(events)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainTrace, data), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
