// Package cond provides a condition variable whose Wait can be abandoned
// through a context.
package cond

import (
	"context"
	"sync"
)

type ContextCond struct {
	L sync.Locker

	mux sync.Mutex
	ch  chan struct{}
}

func NewContextCond(l sync.Locker) *ContextCond {
	return &ContextCond{
		L:  l,
		ch: make(chan struct{}),
	}
}

// Wait unlocks c.L, waits for a Broadcast or for ctx to end and locks c.L
// again before returning. Like sync.Cond, callers re-check their predicate
// in a loop.
func (c *ContextCond) Wait(ctx context.Context) error {
	c.mux.Lock()
	ch := c.ch
	c.mux.Unlock()

	c.L.Unlock()
	defer c.L.Lock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Broadcast wakes every waiter.
func (c *ContextCond) Broadcast() {
	c.mux.Lock()
	defer c.mux.Unlock()

	close(c.ch)
	c.ch = make(chan struct{})
}
