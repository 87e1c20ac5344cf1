// Package timeline holds the authored segments of one track and the clips
// derived from them.
package timeline

import (
	"fmt"
	"sort"

	"github.com/harshabose/preview/pkg/media"
)

const DefaultTransitionWindow = 0.5

// Timeline is not safe for concurrent use; the owning track serialises
// access.
type Timeline struct {
	window   float64
	segments []TrackSegment
	clips    []Clip
}

func New(window float64) *Timeline {
	if window <= 0 {
		window = DefaultTransitionWindow
	}
	return &Timeline{window: window}
}

func (t *Timeline) Add(segment FileSegment, transition Transition) error {
	if segment.Duration <= 0 {
		return fmt.Errorf("segment %s has duration %.3f (%w)", segment.Source, segment.Duration, media.ErrorInvalidEdit)
	}
	if segment.TrackStart < 0 || segment.SourceStart < 0 {
		return fmt.Errorf("segment %s starts before zero (%w)", segment.Source, media.ErrorInvalidEdit)
	}

	t.segments = append(t.segments, TrackSegment{FileSegment: segment, Transition: transition})
	sort.SliceStable(t.segments, func(i, j int) bool {
		return t.segments[i].TrackStart < t.segments[j].TrackStart
	})

	t.clips = DeriveClips(t.segments, t.window)
	return nil
}

// Split cuts the segment containing secs in two. The tail keeps the source
// mapping by translation and starts with the given transition.
func (t *Timeline) Split(secs float64, transition Transition) error {
	index := -1
	for i, s := range t.segments {
		if s.TrackStart < secs && secs < s.End() {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("no segment strictly contains %.3fs (%w)", secs, media.ErrorInvalidEdit)
	}

	head := &t.segments[index]
	offset := secs - head.TrackStart

	tail := TrackSegment{
		FileSegment: NewFileSegment(head.Source, secs, head.SourceStart+offset, head.Duration-offset),
		Transition:  transition,
	}
	head.Duration = offset

	t.segments = append(t.segments, TrackSegment{})
	copy(t.segments[index+2:], t.segments[index+1:])
	t.segments[index+1] = tail

	t.clips = DeriveClips(t.segments, t.window)
	return nil
}

func (t *Timeline) Segments() []TrackSegment {
	return append([]TrackSegment(nil), t.segments...)
}

func (t *Timeline) Clips() []Clip {
	return append([]Clip(nil), t.clips...)
}

func (t *Timeline) Empty() bool {
	return len(t.segments) == 0
}

// Duration is the summed length of all segments.
func (t *Timeline) Duration() float64 {
	var total float64
	for _, s := range t.segments {
		total += s.Duration
	}
	return total
}

// End is where the next appended segment starts.
func (t *Timeline) End() float64 {
	if len(t.segments) == 0 {
		return 0
	}
	return t.segments[len(t.segments)-1].End()
}

func (t *Timeline) ClipAt(secs float64) (Clip, bool) {
	i := sort.Search(len(t.clips), func(i int) bool {
		return t.clips[i].End() > secs
	})
	if i < len(t.clips) && t.clips[i].Contains(secs) {
		return t.clips[i], true
	}
	return Clip{}, false
}

// DeriveClips turns ordered segments into contiguous clips, carving fade
// windows of the given length at transition boundaries. A window is only
// carved where the segment still has room for it, so clips never overlap.
func DeriveClips(segments []TrackSegment, window float64) []Clip {
	clips := make([]Clip, 0, len(segments))

	for i, s := range segments {
		whole := Clip{
			Segment:     s.ID,
			Source:      s.Source,
			TrackStart:  s.TrackStart,
			SourceStart: s.SourceStart,
			Duration:    s.Duration,
		}

		if s.Duration < window {
			clips = append(clips, whole)
			continue
		}

		hasIn := s.Transition != TransitionNone
		hasOut := i+1 < len(segments) && segments[i+1].Transition != TransitionNone
		if hasIn && hasOut && s.Duration < 2*window {
			hasOut = false
		}

		var head, tail float64
		if hasIn {
			head = window
		}
		if hasOut {
			tail = window
		}

		if hasIn {
			clips = append(clips, part(whole, 0, window, ClipFadeIn))
		}
		if main := s.Duration - head - tail; main > 0 {
			clips = append(clips, part(whole, head, main, ClipNone))
		}
		if hasOut {
			clips = append(clips, part(whole, s.Duration-window, window, ClipFadeOut))
		}
	}

	return clips
}

func part(c Clip, offset, duration float64, effect ClipEffect) Clip {
	c.TrackStart += offset
	c.SourceStart += offset
	c.Duration = duration
	c.Effect = effect
	return c
}
