//go:build cgo_enabled

package transcode

import (
	"github.com/asticode/go-astiav"

	"github.com/harshabose/preview/pkg/media"
)

type CanDescribeFrameRate interface {
	FrameRate() astiav.Rational
}

type CanDescribeTimeBase interface {
	TimeBase() astiav.Rational
}

type CanDescribeMediaVideoFrame interface {
	CanDescribeFrameRate
	CanDescribeTimeBase
	Height() int
	Width() int
	PixelFormat() astiav.PixelFormat
	SampleAspectRatio() astiav.Rational
	ColorSpace() astiav.ColorSpace
	ColorRange() astiav.ColorRange
}

type CanDescribeMediaAudioFrame interface {
	CanDescribeTimeBase
	SampleRate() int
	SampleFormat() astiav.SampleFormat
	ChannelLayout() astiav.ChannelLayout
}

type CanDescribeMediaFrame interface {
	MediaType() astiav.MediaType
	CanDescribeMediaVideoFrame
	CanDescribeMediaAudioFrame
}

// CanDescribeStream is implemented by decoders that can parameterise a
// filter source for one of their streams.
type CanDescribeStream interface {
	Describe(kind media.Kind) (CanDescribeMediaFrame, error)
}

type CanSetMediaVideoFrame interface {
	SetFrameRate(CanDescribeFrameRate)
	SetTimeBase(CanDescribeTimeBase)
	SetHeight(CanDescribeMediaVideoFrame)
	SetWidth(CanDescribeMediaVideoFrame)
	SetPixelFormat(CanDescribeMediaVideoFrame)
	SetSampleAspectRatio(CanDescribeMediaVideoFrame)
	SetColorSpace(CanDescribeMediaVideoFrame)
	SetColorRange(CanDescribeMediaVideoFrame)
}

type CanSetMediaAudioFrame interface {
	SetTimeBase(CanDescribeTimeBase)
	SetSampleRate(CanDescribeMediaAudioFrame)
	SetSampleFormat(CanDescribeMediaAudioFrame)
	SetChannelLayout(CanDescribeMediaAudioFrame)
}
