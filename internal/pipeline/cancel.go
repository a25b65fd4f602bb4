package pipeline

import (
	"context"
	"sync"
)

// Canceller cancels the shards of one execution, either one shard at a time or
// everything that has not finished yet.
type Canceller struct {
	mu      sync.Mutex
	nextID  int
	active  map[int]activeShard
	stopped bool
}

type activeShard struct {
	param  string
	cancel context.CancelFunc
}

// NewCanceller creates a canceller with nothing running
func NewCanceller() *Canceller {
	return &Canceller{active: make(map[int]activeShard)}
}

// CancelShard cancels the in-flight query of every active shard named param.
// It reports whether any shard was cancelled.
func (c *Canceller) CancelShard(param string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	found := false
	for _, s := range c.active {
		if s.param == param {
			s.cancel()
			found = true
		}
	}
	return found
}

// CancelAll cancels every active shard; shards that have not started yet
// are reported as cancelled without connecting.
func (c *Canceller) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	for _, s := range c.active {
		s.cancel()
	}
}

// Stopped reports whether CancelAll was called
func (c *Canceller) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// shardContext derives the context for one shard. release must be called once
// the shard is done.
func (c *Canceller) shardContext(parent context.Context, param string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		cancel()
		return ctx, func() {}
	}

	id := c.nextID
	c.nextID++
	c.active[id] = activeShard{param: param, cancel: cancel}

	return ctx, func() {
		c.mu.Lock()
		delete(c.active, id)
		c.mu.Unlock()
		cancel()
	}
}
