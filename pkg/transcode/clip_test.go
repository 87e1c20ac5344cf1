//go:build cgo_enabled

package transcode

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/require"
)

const (
	clipSize       = 64
	clipFrameRate  = 25
	clipSampleRate = 8000
	// one video frame worth of samples
	clipSamples = clipSampleRate / clipFrameRate
)

type clipTrack struct {
	context *astiav.CodecContext
	stream  *astiav.Stream
	frame   *astiav.Frame
	packet  *astiav.Packet
}

func newClipTrack(t *testing.T, fc *astiav.FormatContext, id astiav.CodecID, setup func(*astiav.CodecContext, *astiav.Frame)) *clipTrack {
	t.Helper()

	codec := astiav.FindEncoder(id)
	require.NotNil(t, codec, "no %s encoder", id)

	c := &clipTrack{
		context: astiav.AllocCodecContext(codec),
		frame:   astiav.AllocFrame(),
		packet:  astiav.AllocPacket(),
	}
	require.NotNil(t, c.context)
	t.Cleanup(func() {
		c.packet.Free()
		c.frame.Free()
		c.context.Free()
	})

	setup(c.context, c.frame)
	c.context.SetFlags(astiav.NewCodecContextFlags(astiav.CodecContextFlagGlobalHeader))
	require.NoError(t, c.context.Open(codec, nil))
	require.NoError(t, c.frame.AllocBuffer(0))

	c.stream = fc.NewStream(nil)
	require.NotNil(t, c.stream)
	require.NoError(t, c.stream.CodecParameters().FromCodecContext(c.context))
	c.stream.SetTimeBase(c.context.TimeBase())

	return c
}

// write encodes the track frame stamped with pts, or flushes the encoder
// when pts is negative.
func (c *clipTrack) write(t *testing.T, fc *astiav.FormatContext, pts int64) {
	t.Helper()

	if pts < 0 {
		require.NoError(t, c.context.SendFrame(nil))
	} else {
		require.NoError(t, c.frame.MakeWritable())
		c.frame.SetPts(pts)
		require.NoError(t, c.context.SendFrame(c.frame))
	}

	for {
		if err := c.context.ReceivePacket(c.packet); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return
			}
			require.NoError(t, err)
		}
		c.packet.SetStreamIndex(c.stream.Index())
		c.packet.RescaleTs(c.context.TimeBase(), c.stream.TimeBase())
		require.NoError(t, fc.WriteInterleavedFrame(c.packet))
	}
}

// writeClip encodes secs seconds of 64x64 mpeg4 video at 25 fps into a nut
// file under the test's temp dir, with a mono pcm track when withAudio.
func writeClip(t *testing.T, name string, secs float64, withAudio bool) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	fc, err := astiav.AllocOutputFormatContext(nil, "nut", path)
	require.NoError(t, err)
	defer fc.Free()

	video := newClipTrack(t, fc, astiav.CodecIDMpeg4, func(cc *astiav.CodecContext, f *astiav.Frame) {
		cc.SetWidth(clipSize)
		cc.SetHeight(clipSize)
		cc.SetPixelFormat(astiav.PixelFormatYuv420P)
		cc.SetTimeBase(astiav.NewRational(1, clipFrameRate))
		cc.SetFramerate(astiav.NewRational(clipFrameRate, 1))
		cc.SetGopSize(clipFrameRate / 2)

		f.SetWidth(clipSize)
		f.SetHeight(clipSize)
		f.SetPixelFormat(astiav.PixelFormatYuv420P)
	})

	var audio *clipTrack
	if withAudio {
		audio = newClipTrack(t, fc, astiav.CodecIDPcmS16Le, func(cc *astiav.CodecContext, f *astiav.Frame) {
			cc.SetSampleFormat(astiav.SampleFormatS16)
			cc.SetSampleRate(clipSampleRate)
			cc.SetChannelLayout(astiav.ChannelLayoutMono)
			cc.SetTimeBase(astiav.NewRational(1, clipSampleRate))

			f.SetNbSamples(clipSamples)
			f.SetSampleFormat(astiav.SampleFormatS16)
			f.SetSampleRate(clipSampleRate)
			f.SetChannelLayout(astiav.ChannelLayoutMono)
		})
	}

	pb, err := astiav.OpenIOContext(path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, pb.Close())
	}()
	fc.SetPb(pb)

	require.NoError(t, fc.WriteHeader(nil))

	frames := int64(secs * clipFrameRate)
	for i := int64(0); i < frames; i++ {
		video.write(t, fc, i)
		if audio != nil {
			audio.write(t, fc, i*clipSamples)
		}
	}
	video.write(t, fc, -1)
	if audio != nil {
		audio.write(t, fc, -1)
	}

	require.NoError(t, fc.WriteTrailer())
	return path
}
