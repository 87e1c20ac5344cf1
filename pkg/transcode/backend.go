//go:build cgo_enabled

package transcode

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/harshabose/preview/internal/logging"
	"github.com/harshabose/preview/pkg/config"
	"github.com/harshabose/preview/pkg/effect"
	"github.com/harshabose/preview/pkg/media"
)

// Backend hands out libav backed decoders and filters.
type Backend struct {
	ctx    context.Context
	config config.DecoderConfig
	logger zerolog.Logger
}

func NewBackend(ctx context.Context, c config.DecoderConfig, logger zerolog.Logger) *Backend {
	return &Backend{ctx: ctx, config: c, logger: logger}
}

func (b *Backend) NewDecoder() (media.Decoder, error) {
	d, err := CreateDecoder(b.ctx, WithDecoderConfig(b.config), WithDecoderLogger(logging.For(b.logger, logging.CategoryDecoder)))
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (b *Backend) NewFilter(spec effect.Spec, inputs ...media.Decoder) (effect.Filter, error) {
	f, err := CreateFilter(spec, inputs, WithFilterLogger(logging.For(b.logger, logging.CategoryFilter)))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (b *Backend) Probe(path string) (float64, error) {
	info, err := Probe(path)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}
