package effect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harshabose/preview/pkg/media"
)

var (
	oneVideo = []media.Kind{media.KindVideo}
	twoVideo = []media.Kind{media.KindVideo, media.KindVideo}
	oneAudio = []media.Kind{media.KindAudio}
	twoAudio = []media.Kind{media.KindAudio, media.KindAudio}
)

// Box places the overlay track picture on top of the main one.
type Box struct {
	X, Y          int
	Width, Height int
	Color         string
	Thickness     int
}

func DefaultBox() Box {
	return Box{X: 10, Y: 10, Width: 50, Height: 50, Color: "red", Thickness: 3}
}

// AudioFormat is the resampling target handed to the audio sink.
type AudioFormat struct {
	SampleRate    int
	ChannelLayout string
	SampleFormat  string
}

func DefaultAudioFormat() AudioFormat {
	return AudioFormat{SampleRate: 44100, ChannelLayout: "stereo", SampleFormat: "s16"}
}

type FadeOut struct {
	Duration float64
}

func (FadeOut) Kind() Kind { return KindFadeOut }
func (FadeOut) Inputs() []media.Kind { return oneVideo }
func (s FadeOut) Describe(fps float64) Description {
	n := media.FramesIn(s.Duration, fps)
	return Description{
		Content:    chain(link(0), fmt.Sprintf("fade=t=out:s=0:n=%d", n), SinkName),
		FrameLimit: n,
	}
}

type FadeIn struct {
	Duration float64
}

func (FadeIn) Kind() Kind { return KindFadeIn }
func (FadeIn) Inputs() []media.Kind { return oneVideo }
func (s FadeIn) Describe(fps float64) Description {
	n := media.FramesIn(s.Duration, fps)
	return Description{
		Content:    chain(link(0), fmt.Sprintf("fade=t=in:s=0:n=%d", n), SinkName),
		FrameLimit: n,
	}
}

type Scale struct {
	Width, Height int
}

func (Scale) Kind() Kind { return KindScale }
func (Scale) Inputs() []media.Kind { return oneVideo }
func (s Scale) Describe(float64) Description {
	return Description{Content: chain(link(0), scale(s.Width, s.Height), SinkName)}
}

type RGB struct{}

func (RGB) Kind() Kind { return KindRGB }
func (RGB) Inputs() []media.Kind { return oneVideo }
func (RGB) Describe(float64) Description {
	return Description{Content: chain(link(0), rgb24, SinkName)}
}

type SoloTrack struct {
	Width, Height int
}

func (SoloTrack) Kind() Kind { return KindSoloTrack }
func (SoloTrack) Inputs() []media.Kind { return oneVideo }
func (s SoloTrack) Describe(float64) Description {
	return Description{Content: graph(
		chain(link(0), scale(s.Width, s.Height), "scaled"),
		chain("scaled", rgb24, SinkName),
	)}
}

type Overlay struct {
	Box Box
}

func (Overlay) Kind() Kind { return KindOverlay }
func (Overlay) Inputs() []media.Kind { return twoVideo }
func (s Overlay) Describe(float64) Description {
	return Description{Content: graph(
		chain(link(0), drawbox(s.Box), "boxed"),
		chain(link(1), scale(s.Box.Width, s.Box.Height), "overlay"),
		"[boxed][overlay]"+overlay(s.Box)+"["+SinkName+"]",
	)}
}

type OverlayTrack struct {
	Width, Height int
	Box           Box
}

func (OverlayTrack) Kind() Kind { return KindOverlayTrack }
func (OverlayTrack) Inputs() []media.Kind { return twoVideo }
func (s OverlayTrack) Describe(float64) Description {
	return Description{Content: graph(
		chain(link(0), scale(s.Width, s.Height), "scaled"),
		chain("scaled", drawbox(s.Box), "boxed"),
		chain(link(1), scale(s.Box.Width, s.Box.Height), "overlay"),
		"[boxed][overlay]"+overlay(s.Box)+"[overlayed]",
		chain("overlayed", rgb24, SinkName),
	)}
}

type AudioMix struct {
	MainGain    float64
	OverlayGain float64
	Output      AudioFormat
}

func (AudioMix) Kind() Kind { return KindAudioMix }
func (AudioMix) Inputs() []media.Kind { return twoAudio }
func (s AudioMix) Describe(float64) Description {
	return Description{Content: graph(
		chain(link(0), volume(s.MainGain), "v0"),
		chain(link(1), volume(s.OverlayGain), "v1"),
		"[v0][v1]amix=inputs=2[mixed]",
		chain("mixed", aresample(s.Output), SinkName),
	)}
}

type AudioPrep struct {
	Output AudioFormat
}

func (AudioPrep) Kind() Kind { return KindAudioPrep }
func (AudioPrep) Inputs() []media.Kind { return oneAudio }
func (s AudioPrep) Describe(float64) Description {
	return Description{Content: chain(link(0), aresample(s.Output), SinkName)}
}

const rgb24 = "format=pix_fmts=rgb24"

func link(i int) string {
	return SourceName(i)
}

func chain(in, filter, out string) string {
	return "[" + in + "]" + filter + "[" + out + "]"
}

func graph(chains ...string) string {
	return strings.Join(chains, ";")
}

func scale(w, h int) string {
	return fmt.Sprintf("scale=w=%d:h=%d", w, h)
}

func drawbox(b Box) string {
	return fmt.Sprintf("drawbox=x=%d:y=%d:w=%d:h=%d:c=%s:t=%d", b.X-1, b.Y-1, b.Width+2, b.Height+2, b.Color, b.Thickness)
}

func overlay(b Box) string {
	return fmt.Sprintf("overlay=x=%d:y=%d", b.X, b.Y)
}

func volume(gain float64) string {
	return "volume=" + strconv.FormatFloat(gain, 'f', -1, 64)
}

func aresample(f AudioFormat) string {
	return fmt.Sprintf("aresample=osr=%d:ocl=%s:osf=%s", f.SampleRate, f.ChannelLayout, f.SampleFormat)
}
