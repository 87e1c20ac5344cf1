package timeline

import (
	"github.com/google/uuid"
)

type Transition int

const (
	TransitionNone Transition = iota
	TransitionFade
)

func (t Transition) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionFade:
		return "fade"
	default:
		return "unknown"
	}
}

type ClipEffect int

const (
	ClipNone ClipEffect = iota
	ClipFadeIn
	ClipFadeOut
)

func (e ClipEffect) String() string {
	switch e {
	case ClipNone:
		return "none"
	case ClipFadeIn:
		return "fade_in"
	case ClipFadeOut:
		return "fade_out"
	default:
		return "unknown"
	}
}

// FileSegment maps [SourceStart, SourceStart+Duration) of Source onto the
// track at TrackStart.
type FileSegment struct {
	ID          uuid.UUID
	Source      string
	TrackStart  float64
	SourceStart float64
	Duration    float64
}

func NewFileSegment(source string, trackStart, sourceStart, duration float64) FileSegment {
	return FileSegment{
		ID:          uuid.New(),
		Source:      source,
		TrackStart:  trackStart,
		SourceStart: sourceStart,
		Duration:    duration,
	}
}

func (s FileSegment) End() float64 {
	return s.TrackStart + s.Duration
}

func (s FileSegment) Contains(secs float64) bool {
	return s.TrackStart <= secs && secs < s.End()
}

// TrackSegment is a FileSegment plus the transition played at its start.
type TrackSegment struct {
	FileSegment
	Transition Transition
}

type Clip struct {
	Segment     uuid.UUID
	Source      string
	TrackStart  float64
	SourceStart float64
	Duration    float64
	Effect      ClipEffect
}

func (c Clip) End() float64 {
	return c.TrackStart + c.Duration
}

func (c Clip) Contains(secs float64) bool {
	return c.TrackStart <= secs && secs < c.End()
}

// SourceTime translates track time into the clip's source file time.
func (c Clip) SourceTime(secs float64) float64 {
	return secs - c.TrackStart + c.SourceStart
}

// TrackTime is the inverse of SourceTime.
func (c Clip) TrackTime(sourceSecs float64) float64 {
	return c.TrackStart + sourceSecs - c.SourceStart
}
