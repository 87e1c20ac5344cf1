// Package framecache keeps decoded frames ordered by presentation timestamp.
//
// A cache hands frames out by floor lookup and remembers the newest
// timestamp it returned. Everything older than that is released as the
// consumer moves forward, and frames that arrive late for an already passed
// timestamp are released on insert, so a frame is never handed out after the
// cache has advanced past it.
package framecache

import (
	"math"
	"sync"

	"github.com/emirpasic/gods/v2/maps/treemap"

	"github.com/harshabose/preview/pkg/media"
)

const none = math.MinInt64

type Release[F media.Frame] func(F)

type Miss int

const (
	Hit Miss = iota
	Empty
	Before
	After
)

func (m Miss) String() string {
	switch m {
	case Hit:
		return "hit"
	case Empty:
		return "empty"
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "unknown"
	}
}

type Cache[F media.Frame] struct {
	mux      sync.Mutex
	frames   *treemap.Map[int64, F]
	release  Release[F]
	capacity int
	held     int64
}

// New creates a cache holding at most capacity frames; capacity <= 0 means
// unbounded. release is called for every frame the cache drops.
func New[F media.Frame](capacity int, release Release[F]) *Cache[F] {
	if release == nil {
		release = func(F) {}
	}
	return &Cache[F]{
		frames:   treemap.New[int64, F](),
		release:  release,
		capacity: capacity,
		held:     none,
	}
}

// Put inserts f keyed by its pts. It reports false when the frame was
// dropped (and released) instead: late, duplicate or untimed.
func (c *Cache[F]) Put(f F) bool {
	c.mux.Lock()
	defer c.mux.Unlock()

	pts := f.Pts()
	if pts == none || (c.held != none && pts <= c.held) {
		c.release(f)
		return false
	}
	if _, found := c.frames.Get(pts); found {
		c.release(f)
		return false
	}

	if c.capacity > 0 && c.frames.Size() >= c.capacity {
		c.evict()
	}

	c.frames.Put(pts, f)
	return true
}

// evict drops the oldest frame that is not the one last handed out.
func (c *Cache[F]) evict() {
	pts, f, ok := c.frames.Min()
	if !ok {
		return
	}
	if pts == c.held {
		if pts, f, ok = c.frames.Ceiling(pts + 1); !ok {
			return
		}
	}
	c.frames.Remove(pts)
	c.release(f)
}

// At returns the frame with the greatest pts <= target and releases all
// older frames. The returned frame stays owned by the cache and is valid
// until the cache moves past it. Targets outside [first, last] miss without
// touching the cache.
func (c *Cache[F]) At(target int64) (F, Miss) {
	c.mux.Lock()
	defer c.mux.Unlock()

	var zero F

	first, _, ok := c.frames.Min()
	if !ok {
		return zero, Empty
	}
	if target < first {
		return zero, Before
	}
	last, _, _ := c.frames.Max()
	if target > last {
		return zero, After
	}

	pts, f, _ := c.frames.Floor(target)
	c.dropBefore(pts)
	c.held = pts

	return f, Hit
}

// PopFirst removes and returns the oldest frame. Ownership passes to the
// caller.
func (c *Cache[F]) PopFirst() (F, bool) {
	c.mux.Lock()
	defer c.mux.Unlock()

	pts, f, ok := c.frames.Min()
	if !ok {
		return f, false
	}
	c.frames.Remove(pts)
	c.held = pts

	return f, true
}

func (c *Cache[F]) Bounds() (first, last int64, ok bool) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if first, _, ok = c.frames.Min(); !ok {
		return 0, 0, false
	}
	last, _, _ = c.frames.Max()
	return first, last, true
}

func (c *Cache[F]) Len() int {
	c.mux.Lock()
	defer c.mux.Unlock()

	return c.frames.Size()
}

// Purge releases every frame and forgets the consumer position.
func (c *Cache[F]) Purge() {
	c.mux.Lock()
	defer c.mux.Unlock()

	c.purge()
}

func (c *Cache[F]) purge() {
	for _, f := range c.frames.Values() {
		c.release(f)
	}
	c.frames.Clear()
	c.held = none
}

func (c *Cache[F]) dropBefore(pts int64) {
	for {
		k, f, ok := c.frames.Min()
		if !ok || k >= pts {
			return
		}
		c.frames.Remove(k)
		c.release(f)
	}
}

// Invalidate locks the caches in the given order, runs reset and purges
// them all before unlocking. Callers must always pass caches in the same
// order.
func Invalidate[F media.Frame](reset func() error, caches ...*Cache[F]) error {
	for _, c := range caches {
		c.mux.Lock()
	}
	defer func() {
		for i := len(caches) - 1; i >= 0; i-- {
			caches[i].mux.Unlock()
		}
	}()

	var err error
	if reset != nil {
		err = reset()
	}
	for _, c := range caches {
		c.purge()
	}

	return err
}
