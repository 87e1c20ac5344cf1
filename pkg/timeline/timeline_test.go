package timeline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshabose/preview/pkg/media"
)

type expectedClip struct {
	source      string
	start, end  float64
	sourceStart float64
	effect      ClipEffect
}

func assertClips(t *testing.T, expected []expectedClip, clips []Clip) {
	t.Helper()

	require.Len(t, clips, len(expected))
	for i, e := range expected {
		c := clips[i]
		assert.Equal(t, e.source, c.Source, "clip %d source", i)
		assert.InDelta(t, e.start, c.TrackStart, 1e-9, "clip %d start", i)
		assert.InDelta(t, e.end, c.End(), 1e-9, "clip %d end", i)
		assert.InDelta(t, e.sourceStart, c.SourceStart, 1e-9, "clip %d source start", i)
		assert.Equal(t, e.effect, c.Effect, "clip %d effect", i)
	}
}

func assertTiles(t *testing.T, tl *Timeline) {
	t.Helper()

	clips := tl.Clips()
	if len(clips) == 0 {
		return
	}
	assert.InDelta(t, 0, clips[0].TrackStart, 1e-9)
	for i := 1; i < len(clips); i++ {
		assert.InDelta(t, clips[i-1].End(), clips[i].TrackStart, 1e-9, "gap or overlap before clip %d", i)
		assert.Greater(t, clips[i].Duration, 0.0)
	}
	assert.InDelta(t, tl.Duration(), clips[len(clips)-1].End(), 1e-9)
}

func TestAppendWithFade(t *testing.T) {
	tl := New(0.5)
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 0, 0, 10), TransitionNone))
	require.NoError(t, tl.Add(NewFileSegment("b.mp4", 10, 0, 5), TransitionFade))

	assertClips(t, []expectedClip{
		{"a.mp4", 0, 9.5, 0, ClipNone},
		{"a.mp4", 9.5, 10, 9.5, ClipFadeOut},
		{"b.mp4", 10, 10.5, 0, ClipFadeIn},
		{"b.mp4", 10.5, 15, 0.5, ClipNone},
	}, tl.Clips())
	assert.InDelta(t, 15, tl.Duration(), 1e-9)
}

func TestNonPositiveWindowFadesForDefault(t *testing.T) {
	tl := New(0)
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 0, 0, 10), TransitionNone))
	require.NoError(t, tl.Add(NewFileSegment("b.mp4", 10, 0, 5), TransitionFade))

	clips := tl.Clips()
	require.Len(t, clips, 4)
	assert.InDelta(t, DefaultTransitionWindow, clips[1].Duration, 1e-9)
	assert.InDelta(t, DefaultTransitionWindow, clips[2].Duration, 1e-9)
}

func TestAddKeepsTrackOrder(t *testing.T) {
	tl := New(0.5)
	require.NoError(t, tl.Add(NewFileSegment("b.mp4", 10, 0, 5), TransitionFade))
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 0, 0, 10), TransitionNone))

	segments := tl.Segments()
	require.Len(t, segments, 2)
	assert.Equal(t, "a.mp4", segments[0].Source)
	assert.Equal(t, TransitionFade, segments[1].Transition)
	assert.Len(t, tl.Clips(), 4)
}

func TestAddRejectsEmptySegment(t *testing.T) {
	tl := New(0.5)
	err := tl.Add(NewFileSegment("a.mp4", 0, 0, 0), TransitionNone)
	assert.ErrorIs(t, err, media.ErrorInvalidEdit)
	assert.True(t, tl.Empty())
}

func TestSplitWithFade(t *testing.T) {
	tl := New(0.5)
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 0, 0, 10), TransitionNone))
	require.NoError(t, tl.Split(5, TransitionFade))

	segments := tl.Segments()
	require.Len(t, segments, 2)
	assert.InDelta(t, 0, segments[0].TrackStart, 1e-9)
	assert.InDelta(t, 5, segments[0].Duration, 1e-9)
	assert.Equal(t, TransitionNone, segments[0].Transition)
	assert.InDelta(t, 5, segments[1].TrackStart, 1e-9)
	assert.InDelta(t, 5, segments[1].SourceStart, 1e-9)
	assert.InDelta(t, 5, segments[1].Duration, 1e-9)
	assert.Equal(t, TransitionFade, segments[1].Transition)
	assert.NotEqual(t, segments[0].ID, segments[1].ID)

	assertClips(t, []expectedClip{
		{"a.mp4", 0, 4.5, 0, ClipNone},
		{"a.mp4", 4.5, 5, 4.5, ClipFadeOut},
		{"a.mp4", 5, 5.5, 5, ClipFadeIn},
		{"a.mp4", 5.5, 10, 5.5, ClipNone},
	}, tl.Clips())
}

func TestSplitTranslatesSourceTime(t *testing.T) {
	tl := New(0.5)
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 1, 9, 5), TransitionNone))
	require.NoError(t, tl.Split(3, TransitionNone))

	segments := tl.Segments()
	require.Len(t, segments, 2)
	assert.InDelta(t, 2, segments[0].Duration, 1e-9)
	assert.InDelta(t, 9, segments[0].SourceStart, 1e-9)
	assert.InDelta(t, 3, segments[1].TrackStart, 1e-9)
	assert.InDelta(t, 11, segments[1].SourceStart, 1e-9)
	assert.InDelta(t, 3, segments[1].Duration, 1e-9)
}

func TestSplitOutsideSegments(t *testing.T) {
	tl := New(0.5)
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 0, 0, 10), TransitionNone))

	for _, at := range []float64{-1, 0, 10, 12} {
		assert.ErrorIs(t, tl.Split(at, TransitionFade), media.ErrorInvalidEdit, "split at %v", at)
	}
	assert.Len(t, tl.Segments(), 1)
}

func TestSplitPreservesDuration(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	tl := New(0.5)
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 0, 0, 30), TransitionNone))
	require.NoError(t, tl.Add(NewFileSegment("b.mp4", 30, 2, 12), TransitionFade))

	for i := 0; i < 40; i++ {
		before := tl.Duration()
		at := r.Float64() * before
		transition := Transition(r.Intn(2))
		if err := tl.Split(at, transition); err != nil {
			require.ErrorIs(t, err, media.ErrorInvalidEdit)
			continue
		}
		assert.InDelta(t, before, tl.Duration(), 1e-9)
		assertTiles(t, tl)
	}
}

func TestClipsTileAppendedSegments(t *testing.T) {
	r := rand.New(rand.NewSource(11))

	for run := 0; run < 20; run++ {
		tl := New(0.5)
		for i := 0; i < 8; i++ {
			duration := 0.1 + r.Float64()*3
			require.NoError(t, tl.Add(NewFileSegment("x.mp4", tl.End(), 0, duration), Transition(r.Intn(2))))
		}
		assertTiles(t, tl)
	}
}

func TestShortSegmentHasNoFades(t *testing.T) {
	tl := New(0.5)
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 0, 0, 4), TransitionNone))
	require.NoError(t, tl.Add(NewFileSegment("b.mp4", 4, 0, 0.3), TransitionFade))
	require.NoError(t, tl.Add(NewFileSegment("c.mp4", 4.3, 0, 4), TransitionFade))

	for _, c := range tl.Clips() {
		if c.Source == "b.mp4" {
			assert.Equal(t, ClipNone, c.Effect)
			assert.InDelta(t, 0.3, c.Duration, 1e-9)
		}
	}
	assertTiles(t, tl)
}

func TestBothTransitionsGiveThreeClips(t *testing.T) {
	tl := New(0.5)
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 0, 0, 2), TransitionNone))
	require.NoError(t, tl.Add(NewFileSegment("b.mp4", 2, 1, 3), TransitionFade))
	require.NoError(t, tl.Add(NewFileSegment("c.mp4", 5, 0, 2), TransitionFade))

	var clips []Clip
	for _, c := range tl.Clips() {
		if c.Source == "b.mp4" {
			clips = append(clips, c)
		}
	}

	assertClips(t, []expectedClip{
		{"b.mp4", 2, 2.5, 1, ClipFadeIn},
		{"b.mp4", 2.5, 4.5, 1.5, ClipNone},
		{"b.mp4", 4.5, 5, 3.5, ClipFadeOut},
	}, clips)
}

func TestNarrowSegmentKeepsOnlyIncomingFade(t *testing.T) {
	tl := New(0.5)
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 0, 0, 2), TransitionNone))
	require.NoError(t, tl.Add(NewFileSegment("b.mp4", 2, 0, 0.8), TransitionFade))
	require.NoError(t, tl.Add(NewFileSegment("c.mp4", 2.8, 0, 2), TransitionFade))

	var effects []ClipEffect
	for _, c := range tl.Clips() {
		if c.Source == "b.mp4" {
			effects = append(effects, c.Effect)
		}
	}
	assert.Equal(t, []ClipEffect{ClipFadeIn, ClipNone}, effects)
	assertTiles(t, tl)
}

func TestClipAt(t *testing.T) {
	tl := New(0.5)
	require.NoError(t, tl.Add(NewFileSegment("a.mp4", 0, 0, 10), TransitionNone))
	require.NoError(t, tl.Add(NewFileSegment("b.mp4", 10, 0, 5), TransitionFade))

	c, ok := tl.ClipAt(9.5)
	require.True(t, ok)
	assert.Equal(t, ClipFadeOut, c.Effect)

	c, ok = tl.ClipAt(10)
	require.True(t, ok)
	assert.Equal(t, "b.mp4", c.Source)
	assert.Equal(t, ClipFadeIn, c.Effect)
	assert.InDelta(t, 0.25, c.SourceTime(10.25), 1e-9)
	assert.InDelta(t, 10.25, c.TrackTime(0.25), 1e-9)

	_, ok = tl.ClipAt(15)
	assert.False(t, ok)
	_, ok = tl.ClipAt(-0.1)
	assert.False(t, ok)
}
