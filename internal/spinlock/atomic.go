package spinlock

import "sync/atomic"

// loadWord is a plain acquire-ordered read, used for the busy-read between
// exclusive-pair attempts in Raw.Lock.
func loadWord(w *uint32) uint32 {
	return atomic.LoadUint32(w)
}

// storeWord is a plain release-ordered write, used for Raw.Unlock.
func storeWord(w *uint32, v uint32) {
	atomic.StoreUint32(w, v)
}
