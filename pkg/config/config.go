package config

import (
	"context"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harshabose/preview/pkg/effect"
)

type contextKey string

const configKey contextKey = "config"

type Config struct {
	Timeline TimelineConfig `yaml:"timeline"`
	Decoder  DecoderConfig  `yaml:"decoder"`
	Audio    AudioConfig    `yaml:"audio"`
	Overlay  OverlayConfig  `yaml:"overlay"`
	Log      LogConfig      `yaml:"log"`
}

type TimelineConfig struct {
	// TransitionWindow is the length of every fade in seconds.
	TransitionWindow float64 `yaml:"transition_window"`
}

type DecoderConfig struct {
	LowWatermark int           `yaml:"low_watermark"`
	MaxCached    int           `yaml:"max_cached"`
	IdleInterval time.Duration `yaml:"idle_interval"`
	SeekTimeout  time.Duration `yaml:"seek_timeout"`
	SeekRetries  int           `yaml:"seek_retries"`
}

type AudioConfig struct {
	SampleRate    int     `yaml:"sample_rate"`
	ChannelLayout string  `yaml:"channel_layout"`
	SampleFormat  string  `yaml:"sample_format"`
	MainGain      float64 `yaml:"main_gain"`
	OverlayGain   float64 `yaml:"overlay_gain"`
}

type OverlayConfig struct {
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Color     string `yaml:"color"`
	Thickness int    `yaml:"thickness"`
}

type LogConfig struct {
	Level      string   `yaml:"level"`
	Categories []string `yaml:"categories"`
}

// Load reads configuration from path over the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func Default() *Config {
	box := effect.DefaultBox()
	format := effect.DefaultAudioFormat()

	return &Config{
		Timeline: TimelineConfig{
			TransitionWindow: 0.5,
		},
		Decoder: DecoderConfig{
			LowWatermark: 10,
			MaxCached:    256,
			IdleInterval: time.Millisecond,
			SeekTimeout:  200 * time.Millisecond,
			SeekRetries:  3,
		},
		Audio: AudioConfig{
			SampleRate:    format.SampleRate,
			ChannelLayout: format.ChannelLayout,
			SampleFormat:  format.SampleFormat,
			MainGain:      0.8,
			OverlayGain:   2.5,
		},
		Overlay: OverlayConfig{
			X:         box.X,
			Y:         box.Y,
			Width:     box.Width,
			Height:    box.Height,
			Color:     box.Color,
			Thickness: box.Thickness,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c AudioConfig) Format() effect.AudioFormat {
	return effect.AudioFormat{
		SampleRate:    c.SampleRate,
		ChannelLayout: c.ChannelLayout,
		SampleFormat:  c.SampleFormat,
	}
}

func (c OverlayConfig) Box() effect.Box {
	return effect.Box{
		X:         c.X,
		Y:         c.Y,
		Width:     c.Width,
		Height:    c.Height,
		Color:     c.Color,
		Thickness: c.Thickness,
	}
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context, falling back to the defaults.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
