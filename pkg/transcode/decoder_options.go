package transcode

import (
	"github.com/rs/zerolog"

	"github.com/harshabose/preview/pkg/config"
	"github.com/harshabose/preview/pkg/effect"
	"github.com/harshabose/preview/pkg/media"
)

type DecoderOption = func(media.Decoder) error
type FilterOption = func(effect.Filter) error

func WithDecoderConfig(c config.DecoderConfig) DecoderOption {
	return func(decoder media.Decoder) error {
		s, ok := decoder.(CanSetDecoderConfig)
		if !ok {
			return ErrorInterfaceMismatch
		}

		s.SetDecoderConfig(c)
		return nil
	}
}

func WithDecoderLogger(logger zerolog.Logger) DecoderOption {
	return func(decoder media.Decoder) error {
		s, ok := decoder.(CanSetLogger)
		if !ok {
			return ErrorInterfaceMismatch
		}

		s.SetLogger(logger)
		return nil
	}
}

func WithFilterLogger(logger zerolog.Logger) FilterOption {
	return func(filter effect.Filter) error {
		s, ok := filter.(CanSetLogger)
		if !ok {
			return ErrorInterfaceMismatch
		}

		s.SetLogger(logger)
		return nil
	}
}
