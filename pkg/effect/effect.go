// Package effect describes the filter graphs the engine builds: one Spec type
// per effect kind, each carrying only the parameters that kind needs.
package effect

import (
	"strconv"

	"github.com/harshabose/preview/pkg/media"
)

type Kind int

const (
	KindNone Kind = iota
	KindFadeOut
	KindFadeIn
	KindOverlay
	KindScale
	KindRGB
	KindSoloTrack
	KindOverlayTrack
	KindAudioMix
	KindAudioPrep
)

var kindNames = map[Kind]string{
	KindNone:         "none",
	KindFadeOut:      "fade_out",
	KindFadeIn:       "fade_in",
	KindOverlay:      "overlay",
	KindScale:        "scale",
	KindRGB:          "rgb",
	KindSoloTrack:    "solo_track",
	KindOverlayTrack: "overlay_track",
	KindAudioMix:     "audio_mix",
	KindAudioPrep:    "audio_prep",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Names of the graph endpoints every Description is written against.
const (
	SinkName = "out"
)

func SourceName(i int) string {
	return "in" + strconv.Itoa(i)
}

// Description is the textual graph body between the named sources and sink.
// FrameLimit > 0 marks an effect that ends after that many fed frames.
type Description struct {
	Content    string
	FrameLimit int
}

// Spec is a value naming one effect and its parameters. Specs are comparable.
type Spec interface {
	Kind() Kind
	Inputs() []media.Kind
	Describe(frameRate float64) Description
}

// Filter is one built effect instance.
type Filter interface {
	Spec() Spec
	Feed(frames ...media.Frame) error
	Output() media.Frame
	Finished() bool
	Close()
}

// Output returns the media kind a spec produces.
func Output(s Spec) media.Kind {
	return s.Inputs()[0]
}
