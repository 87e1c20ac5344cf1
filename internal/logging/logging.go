package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Categories the engine logs under. They are quiet (errors only) unless
// enabled through Init.
const (
	CategoryDecoder       = "decoder"
	CategoryFilter        = "filter"
	CategoryClipRecalc    = "clip_recalc"
	CategoryGetVideoFrame = "get_video_frame"
	CategoryAudio         = "audio"
	CategoryOverlay       = "overlay"
	CategoryRealtime      = "realtime"
)

var (
	mux     sync.RWMutex
	enabled = map[string]bool{}
)

// Init initializes the global logger
func Init(level string, categories ...string) error {
	zerolog.TimeFieldFormat = time.RFC3339

	l := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return err
		}
		l = parsed
	}
	zerolog.SetGlobalLevel(l)

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05.000",
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	Enable(categories...)
	return nil
}

// NewLogger creates a new logger with optional writers
func NewLogger(writers ...io.Writer) zerolog.Logger {
	if len(writers) == 0 {
		return log.Logger
	}

	if len(writers) == 1 {
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

func Enable(categories ...string) {
	mux.Lock()
	defer mux.Unlock()

	for _, c := range categories {
		enabled[c] = true
	}
}

func Enabled(category string) bool {
	mux.RLock()
	defer mux.RUnlock()

	return enabled[category]
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// Category returns a logger tagged with category, raised to error level
// when the category is not enabled.
func Category(category string) zerolog.Logger {
	return For(log.Logger, category)
}

// For derives a category logger from base.
func For(base zerolog.Logger, category string) zerolog.Logger {
	l := base.With().Str("category", category).Logger()
	if !Enabled(category) {
		return l.Level(zerolog.ErrorLevel)
	}
	return l
}
