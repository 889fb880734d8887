package runloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCallbackReorderBuffer_OutOfOrderCompletion covers four dispatches
// completing in order 3,1,4,2: only offsets 1 and 4 ever retire as the
// "last retired" handle.
func TestCallbackReorderBuffer_OutOfOrderCompletion(t *testing.T) {
	b := newCallbackReorderBuffer()

	handles := make([]*CallbackHandle, 4)
	for i := range handles {
		handles[i] = newCallbackHandle(int64(i), fakeEnvelope{o: int64(i + 1)}, nil)
	}

	last, advanced := b.retire(handles[2]) // seq 2 (offset 3)
	assert.False(t, advanced)
	assert.Nil(t, last)

	last, advanced = b.retire(handles[0]) // seq 0 (offset 1)
	require.True(t, advanced)
	require.NotNil(t, last)
	assert.EqualValues(t, 1, last.envelope.Offset())

	last, advanced = b.retire(handles[3]) // seq 3 (offset 4)
	assert.False(t, advanced)
	assert.Nil(t, last)

	last, advanced = b.retire(handles[1]) // seq 1 (offset 2) completes the run through seq 3
	require.True(t, advanced)
	require.NotNil(t, last)
	assert.EqualValues(t, 4, last.envelope.Offset())
}

func TestCallbackReorderBuffer_InOrderRetiresImmediately(t *testing.T) {
	b := newCallbackReorderBuffer()
	h := newCallbackHandle(0, fakeEnvelope{o: 10}, nil)
	last, advanced := b.retire(h)
	require.True(t, advanced)
	assert.EqualValues(t, 10, last.envelope.Offset())
}
