//go:build cgo_enabled

package transcode

import (
	"github.com/harshabose/preview/pkg/effect"
)

func withVideoSetFilterContextParameters(describe CanDescribeMediaVideoFrame) FilterOption {
	return func(filter effect.Filter) error {
		s, ok := filter.(CanSetMediaVideoFrame)
		if !ok {
			return ErrorInterfaceMismatch
		}

		s.SetHeight(describe)
		s.SetWidth(describe)
		s.SetPixelFormat(describe)
		s.SetSampleAspectRatio(describe)
		s.SetTimeBase(describe)
		s.SetColorSpace(describe)
		s.SetColorRange(describe)
		if describe.FrameRate().Float64() > 0 {
			s.SetFrameRate(describe)
		}

		return nil
	}
}

func withAudioSetFilterContextParameters(describe CanDescribeMediaAudioFrame) FilterOption {
	return func(filter effect.Filter) error {
		s, ok := filter.(CanSetMediaAudioFrame)
		if !ok {
			return ErrorInterfaceMismatch
		}

		s.SetSampleRate(describe)
		s.SetSampleFormat(describe)
		s.SetChannelLayout(describe)
		s.SetTimeBase(describe)

		return nil
	}
}
