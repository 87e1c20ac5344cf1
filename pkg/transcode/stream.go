//go:build cgo_enabled

package transcode

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/harshabose/preview/pkg/framecache"
	"github.com/harshabose/preview/pkg/media"
)

// stream is one decoded elementary stream of an open file.
type stream struct {
	kind      media.Kind
	index     int
	stream    *astiav.Stream
	codec     *astiav.Codec
	context   *astiav.CodecContext
	frameRate astiav.Rational
	timeBase  media.Rational
	start     int64
	cache     *framecache.Cache[*astiav.Frame]
}

func newStream(kind media.Kind, s *astiav.Stream, frameRate astiav.Rational) (*stream, error) {
	st := &stream{
		kind:      kind,
		index:     s.Index(),
		stream:    s,
		frameRate: frameRate,
		timeBase:  rational(s.TimeBase()),
		start:     s.StartTime(),
	}

	if st.codec = astiav.FindDecoder(s.CodecParameters().CodecID()); st.codec == nil {
		return nil, ErrorNoCodecFound
	}

	if err := st.open(); err != nil {
		return nil, err
	}

	return st, nil
}

// open allocates and opens a fresh codec context from the stream
// parameters.
func (s *stream) open() error {
	s.context = astiav.AllocCodecContext(s.codec)
	if s.context == nil {
		return ErrorAllocateCodecContext
	}

	if err := s.stream.CodecParameters().ToCodecContext(s.context); err != nil {
		s.close()
		return fmt.Errorf("filling %s codec context (%w)", s.kind, err)
	}

	s.context.SetTimeBase(s.stream.TimeBase())
	if s.kind == media.KindVideo {
		s.context.SetFramerate(s.frameRate)
	}

	if err := s.context.Open(s.codec, nil); err != nil {
		s.close()
		return fmt.Errorf("opening %s codec context (%w)", s.kind, err)
	}

	return nil
}

func (s *stream) close() {
	if s.context != nil {
		s.context.Free()
		s.context = nil
	}
}

func (s *stream) reopen() error {
	s.close()
	return s.open()
}

func (s *stream) seconds(pts int64) float64 {
	return media.PtsToSeconds(pts, s.timeBase, s.start)
}

func (s *stream) pts(secs float64) int64 {
	return media.SecondsToPts(secs, s.timeBase, s.start)
}

func rational(r astiav.Rational) media.Rational {
	return media.Rational{Num: r.Num(), Den: r.Den()}
}

// description is a snapshot of a stream's parameters, taken so a filter
// can be built while the worker reopens codec contexts.
type description struct {
	mediaType         astiav.MediaType
	frameRate         astiav.Rational
	timeBase          astiav.Rational
	width, height     int
	pixelFormat       astiav.PixelFormat
	sampleAspectRatio astiav.Rational
	colorSpace        astiav.ColorSpace
	colorRange        astiav.ColorRange
	sampleRate        int
	sampleFormat      astiav.SampleFormat
	channelLayout     astiav.ChannelLayout
}

func (s *stream) describe() description {
	return description{
		mediaType:         s.context.MediaType(),
		frameRate:         s.frameRate,
		timeBase:          s.stream.TimeBase(),
		width:             s.context.Width(),
		height:            s.context.Height(),
		pixelFormat:       s.context.PixelFormat(),
		sampleAspectRatio: s.context.SampleAspectRatio(),
		colorSpace:        s.context.ColorSpace(),
		colorRange:        s.context.ColorRange(),
		sampleRate:        s.context.SampleRate(),
		sampleFormat:      s.context.SampleFormat(),
		channelLayout:     s.context.ChannelLayout(),
	}
}

func (d description) MediaType() astiav.MediaType { return d.mediaType }
func (d description) FrameRate() astiav.Rational { return d.frameRate }
func (d description) TimeBase() astiav.Rational { return d.timeBase }
func (d description) Height() int { return d.height }
func (d description) Width() int { return d.width }
func (d description) PixelFormat() astiav.PixelFormat { return d.pixelFormat }
func (d description) SampleAspectRatio() astiav.Rational { return d.sampleAspectRatio }
func (d description) ColorSpace() astiav.ColorSpace { return d.colorSpace }
func (d description) ColorRange() astiav.ColorRange { return d.colorRange }
func (d description) SampleRate() int { return d.sampleRate }
func (d description) SampleFormat() astiav.SampleFormat { return d.sampleFormat }
func (d description) ChannelLayout() astiav.ChannelLayout { return d.channelLayout }
