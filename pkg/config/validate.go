package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks the whole configuration and reports every problem at
// once.
func (c *Config) Validate() error {
	var problems []string

	if c.Timeline.TransitionWindow <= 0 {
		problems = append(problems, "timeline transition window must be positive")
	}

	problems = append(problems, c.Decoder.problems()...)
	problems = append(problems, c.Audio.problems()...)
	problems = append(problems, c.Overlay.problems()...)

	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			problems = append(problems, fmt.Sprintf("invalid log level '%s'", c.Log.Level))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}

	return nil
}

func (c DecoderConfig) problems() []string {
	var problems []string

	if c.LowWatermark <= 0 {
		problems = append(problems, "decoder low watermark must be positive")
	}
	if c.MaxCached < c.LowWatermark {
		problems = append(problems, "decoder max cached must not be below the low watermark")
	}
	if c.IdleInterval <= 0 {
		problems = append(problems, "decoder idle interval must be positive")
	}
	if c.SeekTimeout <= 0 {
		problems = append(problems, "decoder seek timeout must be positive")
	}
	if c.SeekRetries < 0 {
		problems = append(problems, "decoder seek retries cannot be negative")
	}

	return problems
}

func (c AudioConfig) problems() []string {
	var problems []string

	if c.SampleRate <= 0 {
		problems = append(problems, "audio sample rate must be positive")
	}
	if c.ChannelLayout == "" {
		problems = append(problems, "audio channel layout is required")
	}
	if c.SampleFormat == "" {
		problems = append(problems, "audio sample format is required")
	}
	if c.MainGain < 0 || c.OverlayGain < 0 {
		problems = append(problems, "audio gains cannot be negative")
	}

	return problems
}

func (c OverlayConfig) problems() []string {
	var problems []string

	if c.Width <= 0 || c.Height <= 0 {
		problems = append(problems, "overlay box must have a positive size")
	}
	if c.X < 1 || c.Y < 1 {
		problems = append(problems, "overlay box must leave room for its border")
	}
	if c.Thickness < 0 {
		problems = append(problems, "overlay border thickness cannot be negative")
	}

	return problems
}
