package preview

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/harshabose/preview/internal/logging"
	"github.com/harshabose/preview/pkg/config"
	"github.com/harshabose/preview/pkg/effect"
	"github.com/harshabose/preview/pkg/media"
)

// stage is a composition filter kept across frames. It is rebuilt only when
// asked for a different spec or when an input decoder moved to another file.
type stage struct {
	filter effect.Filter
	paths  []string
}

func (s *stage) get(backend Backend, spec effect.Spec, inputs ...media.Decoder) (effect.Filter, error) {
	paths := make([]string, 0, len(inputs))
	for _, input := range inputs {
		paths = append(paths, input.Path())
	}

	if s.filter != nil && s.filter.Spec() == spec && slices.Equal(s.paths, paths) {
		return s.filter, nil
	}

	s.close()

	f, err := backend.NewFilter(spec, inputs...)
	if err != nil {
		return nil, err
	}
	s.filter, s.paths = f, paths

	return f, nil
}

func (s *stage) close() {
	if s.filter == nil {
		return
	}
	s.filter.Close()
	s.filter, s.paths = nil, nil
}

// Video composes the main and overlay tracks into the picture and sound the
// consumer shows.
type Video struct {
	main    *Track
	overlay *Track
	backend Backend

	box   effect.Box
	audio config.AudioConfig

	// video goroutine
	solo     stage
	overlaid stage

	// audio goroutine
	prep stage
	mix  stage

	logger      zerolog.Logger
	audioLogger zerolog.Logger
}

func newVideo(backend Backend, c *config.Config, logger zerolog.Logger) (*Video, error) {
	main, err := newTrack(TrackMain, backend, c.Timeline.TransitionWindow, logger)
	if err != nil {
		return nil, err
	}

	overlay, err := newTrack(TrackOverlay, backend, c.Timeline.TransitionWindow, logger)
	if err != nil {
		main.Close()
		return nil, err
	}

	return &Video{
		main:        main,
		overlay:     overlay,
		backend:     backend,
		box:         c.Overlay.Box(),
		audio:       c.Audio,
		logger:      logging.For(logger, logging.CategoryOverlay),
		audioLogger: logging.For(logger, logging.CategoryAudio),
	}, nil
}

func (v *Video) Track(kind TrackKind) (*Track, error) {
	switch kind {
	case TrackMain:
		return v.main, nil
	case TrackOverlay:
		return v.overlay, nil
	default:
		return nil, fmt.Errorf("unknown track %d: %w", kind, media.ErrorInvalidEdit)
	}
}

// Seek moves both tracks to secs and reports whether the main picture will
// change.
func (v *Video) Seek(secs float64) (bool, error) {
	changed, err := v.main.Seek(secs)
	if err != nil {
		return false, err
	}

	if _, err := v.overlay.Seek(secs); err != nil {
		v.logger.Warn().Err(err).Float64("secs", secs).Msg("overlay track did not follow the seek")
	}

	return changed, nil
}

func (v *Video) Duration() float64 {
	return v.main.Duration()
}

func (v *Video) LastShown() float64 {
	return v.main.LastShown()
}

// VideoFrame returns the main track at secs scaled to width x height, with
// the overlay track boxed on top when it has a frame for secs.
func (v *Video) VideoFrame(ctx context.Context, secs float64, width, height int) (media.Frame, error) {
	mainFrame, err := v.main.VideoFrame(ctx, secs)
	if err != nil {
		return nil, fmt.Errorf("main track at %.3fs: %w", secs, err)
	}

	overlayFrame, err := v.overlay.VideoFrame(ctx, secs)
	if err != nil {
		if !media.IsTransient(err) {
			return nil, fmt.Errorf("overlay track at %.3fs: %w", secs, err)
		}
		v.logger.Debug().Err(err).Float64("secs", secs).Msg("no overlay frame")
	}

	var (
		f    effect.Filter
		feed []media.Frame
		fErr error
	)
	if overlayFrame != nil {
		f, fErr = v.overlaid.get(v.backend, effect.OverlayTrack{Width: width, Height: height, Box: v.box}, v.main.Decoder(), v.overlay.Decoder())
		feed = []media.Frame{mainFrame, overlayFrame}
	} else {
		f, fErr = v.solo.get(v.backend, effect.SoloTrack{Width: width, Height: height}, v.main.Decoder())
		feed = []media.Frame{mainFrame}
	}
	if fErr != nil {
		return nil, fErr
	}

	if err := f.Feed(feed...); err != nil {
		v.logger.Error().Err(err).Stringer("kind", f.Spec().Kind()).Msg("error feeding the composition filter")
		return nil, err
	}

	out := f.Output()
	if out == nil {
		return nil, fmt.Errorf("composition has no output yet: %w", media.ErrorFrameUnavailable)
	}

	return out, nil
}

// NextAudioFrame pops the next main track audio frame, mixed with the
// overlay track's when it has one, resampled to the configured format.
func (v *Video) NextAudioFrame() (media.Frame, error) {
	mainFrame, err := v.main.NextAudioFrame()
	if err != nil {
		v.audioLogger.Debug().Err(err).Msg("no audio frame from the main track")
		return nil, err
	}

	overlayFrame, err := v.overlay.NextAudioFrame()
	if err != nil {
		v.audioLogger.Debug().Err(err).Msg("no audio frame from the overlay track")
	}

	var (
		f    effect.Filter
		feed []media.Frame
	)
	if overlayFrame != nil {
		f, err = v.mix.get(v.backend, effect.AudioMix{MainGain: v.audio.MainGain, OverlayGain: v.audio.OverlayGain, Output: v.audio.Format()}, v.main.Decoder(), v.overlay.Decoder())
		feed = []media.Frame{mainFrame, overlayFrame}
	} else {
		f, err = v.prep.get(v.backend, effect.AudioPrep{Output: v.audio.Format()}, v.main.Decoder())
		feed = []media.Frame{mainFrame}
	}
	if err != nil {
		return nil, err
	}

	if err := f.Feed(feed...); err != nil {
		v.audioLogger.Error().Err(err).Stringer("kind", f.Spec().Kind()).Msg("error feeding the audio filter")
		return nil, err
	}

	out := f.Output()
	if out == nil {
		return nil, fmt.Errorf("audio filter has no output yet: %w", media.ErrorFrameUnavailable)
	}

	return out, nil
}

func (v *Video) Close() {
	v.solo.close()
	v.overlaid.close()
	v.prep.close()
	v.mix.close()

	v.main.Close()
	v.overlay.Close()
}
