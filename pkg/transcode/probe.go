//go:build cgo_enabled

package transcode

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/harshabose/preview/pkg/media"
)

type Info struct {
	Path       string
	Duration   float64
	HasVideo   bool
	HasAudio   bool
	Width      int
	Height     int
	FrameRate  float64
	VideoCodec string
	SampleRate int
	Channels   int
	AudioCodec string
}

// Probe opens path just long enough to read its stream layout. Duration
// comes from the first stream, or from the container when the stream does
// not carry one.
func Probe(path string) (Info, error) {
	info := Info{Path: path}

	formatContext := astiav.AllocFormatContext()
	if formatContext == nil {
		return info, fmt.Errorf("probing %s: %w (%w)", path, ErrorAllocateFormatContext, media.ErrorOpen)
	}
	defer formatContext.Free()

	if err := formatContext.OpenInput(path, nil, nil); err != nil {
		return info, fmt.Errorf("probing %s: %w (%w)", path, err, media.ErrorOpen)
	}
	defer formatContext.CloseInput()

	if err := formatContext.FindStreamInfo(nil); err != nil {
		return info, fmt.Errorf("probing %s: %w (%w)", path, err, media.ErrorOpen)
	}

	streams := formatContext.Streams()
	if len(streams) == 0 {
		return info, fmt.Errorf("probing %s: %w (%w)", path, ErrorNoStreamFound, media.ErrorOpen)
	}

	if first := streams[0]; first.Duration() > 0 {
		info.Duration = float64(first.Duration()) * first.TimeBase().Float64()
	} else {
		info.Duration = float64(formatContext.Duration()) / media.TimeBase
	}

	for _, s := range streams {
		cp := s.CodecParameters()
		switch cp.MediaType() {
		case astiav.MediaTypeVideo:
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.Width = cp.Width()
			info.Height = cp.Height()
			info.FrameRate = formatContext.GuessFrameRate(s, nil).Float64()
			info.VideoCodec = fmt.Sprint(cp.CodecID())
		case astiav.MediaTypeAudio:
			if info.HasAudio {
				continue
			}
			info.HasAudio = true
			info.SampleRate = cp.SampleRate()
			info.Channels = cp.ChannelLayout().Channels()
			info.AudioCodec = fmt.Sprint(cp.CodecID())
		}
	}

	if !info.HasVideo && !info.HasAudio {
		return info, fmt.Errorf("probing %s: %w (%w)", path, ErrorNoStreamFound, media.ErrorOpen)
	}

	return info, nil
}
