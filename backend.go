package preview

import (
	"github.com/harshabose/preview/pkg/effect"
	"github.com/harshabose/preview/pkg/media"
)

// Backend creates the media objects an Editor drives. The libav backed one
// lives in pkg/transcode.
type Backend interface {
	NewDecoder() (media.Decoder, error)
	NewFilter(spec effect.Spec, inputs ...media.Decoder) (effect.Filter, error)
	Probe(path string) (float64, error)
}

type TrackKind int

const (
	TrackMain TrackKind = iota
	TrackOverlay
)

func (k TrackKind) String() string {
	switch k {
	case TrackMain:
		return "main"
	case TrackOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}
