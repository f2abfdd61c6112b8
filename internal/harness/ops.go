package harness

import (
	"fmt"

	"github.com/roach88/simcore/internal/cmdqueue"
	"github.com/roach88/simcore/internal/scene"
)

// apply runs one op on the sim goroutine.
func (h *Harness) apply(op Op) error {
	switch op.Op {
	case OpMaterial:
		m, err := h.scene.AddMaterial(op.Name)
		if err != nil {
			return err
		}
		if op.Color != nil {
			m.SetColor(toColor(op.Color))
		}
		if op.Shader != "" {
			m.SetShader(op.Shader)
		}
		h.result.ObjectIDs[op.Name] = uint64(m.ID())

	case OpRenderable:
		r, err := h.scene.AddRenderable(op.Name, op.Material)
		if err != nil {
			return err
		}
		if op.Position != nil {
			r.SetPosition(op.Position[0], op.Position[1], op.Position[2])
		}
		if op.Layer != 0 {
			r.SetLayer(op.Layer)
		}
		h.result.ObjectIDs[op.Name] = uint64(r.ID())

	case OpSetColor:
		m, err := h.material(op.Name)
		if err != nil {
			return err
		}
		m.SetColor(toColor(op.Color))

	case OpSetShader:
		m, err := h.material(op.Name)
		if err != nil {
			return err
		}
		m.SetShader(op.Shader)

	case OpSetPosition:
		r, err := h.renderable(op.Name)
		if err != nil {
			return err
		}
		r.SetPosition(op.Position[0], op.Position[1], op.Position[2])

	case OpSetLayer:
		r, err := h.renderable(op.Name)
		if err != nil {
			return err
		}
		r.SetLayer(op.Layer)

	case OpSetMaterial:
		r, err := h.renderable(op.Name)
		if err != nil {
			return err
		}
		if op.Material == "" {
			r.SetMaterial(nil)
			return nil
		}
		m, err := h.material(op.Material)
		if err != nil {
			return err
		}
		r.SetMaterial(m)

	case OpRemove:
		return h.scene.Remove(op.Name)

	case OpSyncNow:
		obj, ok := h.scene.Object(op.Name)
		if !ok {
			return fmt.Errorf("sync_now: unknown object %q", op.Name)
		}
		obj.CoreBase().SyncToCoreNow(h.engine.Accessor())

	case OpCommand:
		h.queueCommand(op)

	case OpDefer:
		then := op.Then
		h.engine.Deferred().Queue(func() {
			for _, inner := range then {
				if err := h.apply(inner); err != nil && h.deferErr == nil {
					h.deferErr = err
				}
			}
		})

	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
	return nil
}

func (h *Harness) queueCommand(op Op) {
	var opts []cmdqueue.CommandOption
	if op.CallbackID != 0 {
		opts = append(opts, cmdqueue.WithCallbackID(op.CallbackID))
	}
	if op.Notify {
		opts = append(opts, cmdqueue.Notify())
	}

	acc := h.engine.Accessor()
	if !op.Returns {
		acc.Queue(func() {}, opts...)
		return
	}

	leave := op.LeavePending
	value := op.CallbackID
	acc.QueueReturn(func(o *cmdqueue.AsyncOp) {
		if !leave {
			o.CompleteOperation(value)
		}
	}, opts...)
}

func (h *Harness) material(name string) (*scene.Material, error) {
	m, ok := h.scene.Material(name)
	if !ok {
		return nil, fmt.Errorf("unknown material %q", name)
	}
	return m, nil
}

func (h *Harness) renderable(name string) (*scene.Renderable, error) {
	r, ok := h.scene.Renderable(name)
	if !ok {
		return nil, fmt.Errorf("unknown renderable %q", name)
	}
	return r, nil
}

func toColor(c []float32) scene.Color {
	return scene.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}
