//go:build cgo_enabled

package preview

import (
	"github.com/harshabose/preview/pkg/transcode"
)

// WithAstiavBackend decodes through libav, using the decoder settings of
// whatever configuration is in place when the option runs.
func WithAstiavBackend() EditorOption {
	return func(editor *Editor) error {
		editor.backend = transcode.NewBackend(editor.ctx, editor.config.Decoder, editor.logger)
		return nil
	}
}
