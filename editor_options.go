package preview

import (
	"github.com/rs/zerolog"

	"github.com/harshabose/preview/pkg/config"
)

type EditorOption = func(*Editor) error

// WithConfig replaces the configuration taken from the context. Options that
// read the configuration must come after it.
func WithConfig(c *config.Config) EditorOption {
	return func(editor *Editor) error {
		if err := c.Validate(); err != nil {
			return err
		}
		editor.config = c
		return nil
	}
}

func WithLogger(logger zerolog.Logger) EditorOption {
	return func(editor *Editor) error {
		editor.logger = logger
		return nil
	}
}

func WithBackend(backend Backend) EditorOption {
	return func(editor *Editor) error {
		editor.backend = backend
		return nil
	}
}
