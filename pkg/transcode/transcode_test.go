//go:build cgo_enabled

package transcode

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshabose/preview/pkg/effect"
	"github.com/harshabose/preview/pkg/media"
)

func TestOpenMissingFile(t *testing.T) {
	d, err := CreateDecoder(context.Background())
	require.NoError(t, err)
	defer d.Close()

	err = d.Open(filepath.Join(t.TempDir(), "absent.mp4"), 0)
	assert.ErrorIs(t, err, media.ErrorOpen)
	assert.Empty(t, d.Path())
	assert.False(t, d.HasVideo())
}

func TestFrameAtOnClosedDecoder(t *testing.T) {
	d, err := CreateDecoder(context.Background())
	require.NoError(t, err)

	_, err = d.FrameAt(context.Background(), 1, media.KindVideo)
	assert.ErrorIs(t, err, media.ErrorDecoderClosed)

	d.Close()
	d.Close()
}

func TestProbeMissingFile(t *testing.T) {
	_, err := Probe(filepath.Join(t.TempDir(), "absent.mp4"))
	assert.ErrorIs(t, err, media.ErrorOpen)
}

func TestCreateFilterInputCount(t *testing.T) {
	d, err := CreateDecoder(context.Background())
	require.NoError(t, err)

	_, err = CreateFilter(effect.OverlayTrack{Width: 64, Height: 64, Box: effect.DefaultBox()}, []media.Decoder{d})
	assert.ErrorIs(t, err, media.ErrorGraphBuild)
	assert.ErrorIs(t, err, ErrorInputCount)
}
