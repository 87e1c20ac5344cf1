package transcode

import (
	"github.com/rs/zerolog"

	"github.com/harshabose/preview/pkg/config"
)

type CanSetDecoderConfig interface {
	SetDecoderConfig(config.DecoderConfig)
}

type CanSetLogger interface {
	SetLogger(zerolog.Logger)
}
