package engine

import (
	"github.com/roach88/simcore/internal/cmdqueue"
	"github.com/roach88/simcore/internal/coreobject"
)

// playbackFanout forwards playback events to several observers in order.
type playbackFanout []cmdqueue.Observer

func (f playbackFanout) CommandPlayed(ev cmdqueue.PlaybackEvent) {
	for _, o := range f {
		o.CommandPlayed(ev)
	}
}

// syncFanout forwards sync reports to several observers in order.
type syncFanout []coreobject.SyncObserver

func (f syncFanout) ObjectSynced(id coreobject.ID, flags coreobject.DirtyFlags, size int) {
	for _, o := range f {
		o.ObjectSynced(id, flags, size)
	}
}
