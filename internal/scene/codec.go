package scene

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/roach88/simcore/internal/coreobject"
)

// ErrShortSnapshot is the panic value when a snapshot ends early. Snapshots
// are produced in-process, so a short one is a programming error.
var ErrShortSnapshot = errors.New("scene: snapshot truncated")

var le = binary.LittleEndian

// encoder appends into a buffer sized up front from the frame allocator.
type encoder struct {
	buf []byte
}

func newEncoder(alloc *coreobject.FrameAlloc, size int) *encoder {
	return &encoder{buf: alloc.Alloc(size)[:0]}
}

func (e *encoder) u32(v uint32)  { e.buf = le.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64)  { e.buf = le.AppendUint64(e.buf, v) }
func (e *encoder) f32(v float32) { e.u32(math.Float32bits(v)) }

func (e *encoder) str(s string) {
	e.u32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) data() coreobject.SyncData {
	return coreobject.NewSyncData(e.buf)
}

type decoder struct {
	buf []byte
}

func newDecoder(d coreobject.SyncData) *decoder {
	return &decoder{buf: d.Bytes()}
}

func (d *decoder) take(n int) []byte {
	if len(d.buf) < n {
		panic(ErrShortSnapshot)
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) u32() uint32  { return le.Uint32(d.take(4)) }
func (d *decoder) u64() uint64  { return le.Uint64(d.take(8)) }
func (d *decoder) f32() float32 { return math.Float32frombits(d.u32()) }

func (d *decoder) str() string {
	n := int(d.u32())
	return string(d.take(n))
}

func strSize(s string) int { return 4 + len(s) }
