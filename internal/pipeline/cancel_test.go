package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanceller_CancelShard(t *testing.T) {
	c := NewCanceller()

	ctxA, releaseA := c.shardContext(context.Background(), "A")
	defer releaseA()
	ctxB, releaseB := c.shardContext(context.Background(), "B")
	defer releaseB()

	assert.False(t, c.CancelShard("missing"))
	assert.True(t, c.CancelShard("A"))

	assert.Error(t, ctxA.Err())
	assert.NoError(t, ctxB.Err())
	assert.False(t, c.Stopped())
}

func TestCanceller_ReleasedShardIsNotCancellable(t *testing.T) {
	c := NewCanceller()

	_, release := c.shardContext(context.Background(), "A")
	release()

	assert.False(t, c.CancelShard("A"))
}

func TestCanceller_CancelAll(t *testing.T) {
	c := NewCanceller()

	running, release := c.shardContext(context.Background(), "A")
	defer release()

	c.CancelAll()
	assert.True(t, c.Stopped())
	assert.ErrorIs(t, running.Err(), context.Canceled)

	later, releaseLater := c.shardContext(context.Background(), "B")
	defer releaseLater()
	assert.ErrorIs(t, later.Err(), context.Canceled, "shards started after CancelAll are born cancelled")
}
