package framecache

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	pts int64
}

func (f *frame) Pts() int64 { return f.pts }
func (f *frame) Width() int { return 16 }

type released struct {
	pts []int64
}

func (r *released) release(f *frame) {
	r.pts = append(r.pts, f.pts)
}

func fill(c *Cache[*frame], pts ...int64) {
	for _, p := range pts {
		c.Put(&frame{pts: p})
	}
}

func TestAtReturnsFloorAndReleasesOlder(t *testing.T) {
	r := &released{}
	c := New[*frame](0, r.release)
	fill(c, 0, 10, 20, 30, 40)

	f, miss := c.At(25)
	require.Equal(t, Hit, miss)
	assert.Equal(t, int64(20), f.pts)
	assert.Equal(t, []int64{0, 10}, r.pts)
	assert.Equal(t, 3, c.Len())

	f, miss = c.At(25)
	require.Equal(t, Hit, miss)
	assert.Equal(t, int64(20), f.pts)
	assert.Equal(t, 3, c.Len())
}

func TestAtIsConsumedOnce(t *testing.T) {
	c := New[*frame](0, nil)
	fill(c, 0, 10, 20, 30)

	seen := map[int64]int{}
	var last int64 = -1
	for target := int64(0); target <= 30; target += 10 {
		f, miss := c.At(target)
		require.Equal(t, Hit, miss)
		assert.Greater(t, f.pts, last)
		last = f.pts
		seen[f.pts]++
	}
	for pts, n := range seen {
		assert.Equal(t, 1, n, "pts %d returned twice", pts)
	}

	// late arrival for a timestamp the consumer already passed
	assert.False(t, c.Put(&frame{pts: 5}))
	_, miss := c.At(5)
	assert.Equal(t, Before, miss)
}

func TestAtMissesOutsideWindow(t *testing.T) {
	c := New[*frame](0, nil)

	_, miss := c.At(0)
	assert.Equal(t, Empty, miss)

	fill(c, 100, 110, 120)

	_, miss = c.At(99)
	assert.Equal(t, Before, miss)
	_, miss = c.At(121)
	assert.Equal(t, After, miss)
	assert.Equal(t, 3, c.Len())
}

func TestOutOfOrderArrival(t *testing.T) {
	c := New[*frame](0, nil)
	// decode order of an IBBP group
	fill(c, 0, 30, 10, 20, 60, 40, 50)

	first, last, ok := c.Bounds()
	require.True(t, ok)
	assert.Equal(t, int64(0), first)
	assert.Equal(t, int64(60), last)

	f, miss := c.At(15)
	require.Equal(t, Hit, miss)
	assert.Equal(t, int64(10), f.pts)

	f, miss = c.At(45)
	require.Equal(t, Hit, miss)
	assert.Equal(t, int64(40), f.pts)
	assert.Equal(t, 3, c.Len())
}

func TestPutRejectsDuplicatesAndUntimed(t *testing.T) {
	r := &released{}
	c := New[*frame](0, r.release)

	assert.True(t, c.Put(&frame{pts: 1}))
	assert.False(t, c.Put(&frame{pts: 1}))
	assert.False(t, c.Put(&frame{pts: math.MinInt64}))
	assert.Equal(t, 1, c.Len())
	assert.Len(t, r.pts, 2)
}

func TestCapacityEvictsOldestButKeepsHeld(t *testing.T) {
	r := &released{}
	c := New[*frame](3, r.release)
	fill(c, 0, 10, 20)

	f, miss := c.At(0)
	require.Equal(t, Hit, miss)
	require.Equal(t, int64(0), f.pts)

	fill(c, 30)
	assert.Equal(t, []int64{10}, r.pts)

	f, miss = c.At(0)
	require.Equal(t, Hit, miss)
	assert.Equal(t, int64(0), f.pts)
	assert.Equal(t, 3, c.Len())
}

func TestPopFirst(t *testing.T) {
	c := New[*frame](0, nil)
	fill(c, 20, 10)

	f, ok := c.PopFirst()
	require.True(t, ok)
	assert.Equal(t, int64(10), f.pts)

	assert.False(t, c.Put(&frame{pts: 5}))

	f, ok = c.PopFirst()
	require.True(t, ok)
	assert.Equal(t, int64(20), f.pts)

	_, ok = c.PopFirst()
	assert.False(t, ok)
}

func TestInvalidateResetsConsumerPosition(t *testing.T) {
	r := &released{}
	video := New[*frame](0, r.release)
	audio := New[*frame](0, r.release)
	fill(video, 10, 20)
	fill(audio, 11, 21)

	_, miss := video.At(20)
	require.Equal(t, Hit, miss)

	called := false
	require.NoError(t, Invalidate(func() error {
		called = true
		return nil
	}, video, audio))

	assert.True(t, called)
	assert.Zero(t, video.Len())
	assert.Zero(t, audio.Len())
	assert.ElementsMatch(t, []int64{10, 20, 11, 21}, r.pts)

	// a seek backwards must accept older frames again
	assert.True(t, video.Put(&frame{pts: 0}))
}
