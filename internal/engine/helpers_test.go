package engine

import "github.com/roach88/simcore/internal/coreobject"

func coreobjectSyncCounter(n *int) coreobject.SyncObserver {
	return coreobject.SyncObserverFunc(func(coreobject.ID, coreobject.DirtyFlags, int) {
		*n++
	})
}
