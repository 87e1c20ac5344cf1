package media

import (
	"errors"
)

var (
	ErrorOpen             = errors.New("media: open failed")
	ErrorDecode           = errors.New("media: decode failed")
	ErrorSeek             = errors.New("media: seek failed")
	ErrorGraphBuild       = errors.New("media: filter graph build failed")
	ErrorFrameUnavailable = errors.New("media: frame unavailable")
	ErrorInvalidEdit      = errors.New("media: invalid timeline edit")
	ErrorDecoderClosed    = errors.New("media: decoder is closed")
)

// IsTransient reports whether err only means "nothing to show this tick".
func IsTransient(err error) bool {
	return errors.Is(err, ErrorFrameUnavailable)
}
