package runloop

import "sync"

// CallbackReorderBuffer retires completed CallbackHandles in strict dispatch
// order, regardless of completion order. Completions may arrive concurrently
// (up to maxConcurrency of them), so retire is guarded by its own mutex.
type CallbackReorderBuffer struct {
	mu           sync.Mutex
	nextToRetire int64
	completed    map[int64]*CallbackHandle
}

func newCallbackReorderBuffer() *CallbackReorderBuffer {
	return &CallbackReorderBuffer{completed: make(map[int64]*CallbackHandle)}
}

// retire marks handle's sequence number complete and advances nextToRetire
// through every contiguous completed entry starting at the cursor. It
// returns the last handle retired by this call and whether any advance
// occurred at all; the last retired handle's offset is the new high-water
// mark for this task's offset commits.
func (b *CallbackReorderBuffer) retire(handle *CallbackHandle) (last *CallbackHandle, advanced bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.completed[handle.sequence] = handle
	for {
		next, ok := b.completed[b.nextToRetire]
		if !ok {
			break
		}
		last = next
		advanced = true
		delete(b.completed, b.nextToRetire)
		b.nextToRetire++
	}
	return last, advanced
}
