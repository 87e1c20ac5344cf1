package media

import (
	"context"
)

type Kind int

const (
	KindVideo Kind = iota
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Frame is the part of a decoded frame the engine itself looks at. Backends
// hand out their native frame type behind it.
type Frame interface {
	Pts() int64
	Width() int
}

type CanSeek interface {
	Seek(secs float64)
}

type CanProduceFrameAt interface {
	FrameAt(ctx context.Context, secs float64, kind Kind) (Frame, error)
}

type CanProduceAudioFrame interface {
	NextAudioFrame() (Frame, error)
}

type CanDescribeStreams interface {
	HasVideo() bool
	HasAudio() bool
	FrameRate() float64
}

// Decoder owns one open media file and a background decode loop.
type Decoder interface {
	Open(path string, seekTo float64) error
	Close()
	Path() string
	LastVideoSeconds() float64
	Err() error
	CanSeek
	CanProduceFrameAt
	CanProduceAudioFrame
	CanDescribeStreams
}
