package runloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoordinatorRequestSink_CommitConsumeOnRead(t *testing.T) {
	sink := newCoordinatorRequestSink()
	c := newCoordinator("t1")
	c.RequestCommit()
	sink.update(c)

	assert.True(t, sink.hasPendingCommits())
	assert.True(t, sink.consumeCommitRequest("t1"))
	assert.False(t, sink.consumeCommitRequest("t1"), "consume-on-read: second read sees nothing")
	assert.False(t, sink.hasPendingCommits())
}

func TestCoordinatorRequestSink_ShutdownIsSticky(t *testing.T) {
	sink := newCoordinatorRequestSink()
	c1 := newCoordinator("t1")
	c1.RequestShutdown()
	sink.update(c1)
	assert.True(t, sink.shutdownRequested())

	c2 := newCoordinator("t2") // never requests shutdown
	sink.update(c2)
	assert.True(t, sink.shutdownRequested(), "shutdown request is sticky across later coordinators")
}

func TestCoordinatorRequestSink_NilUpdateIsNoop(t *testing.T) {
	sink := newCoordinatorRequestSink()
	sink.update(nil)
	assert.False(t, sink.shutdownRequested())
	assert.False(t, sink.hasPendingCommits())
}
