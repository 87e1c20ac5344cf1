package preview

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harshabose/preview/internal/logging"
	"github.com/harshabose/preview/pkg/effect"
	"github.com/harshabose/preview/pkg/media"
	"github.com/harshabose/preview/pkg/timeline"
)

// Track is one editable lane: its timeline, the decoder pointed at the clip
// being shown and the per-clip effect filter, if any.
type Track struct {
	kind      TrackKind
	timeline  *timeline.Timeline
	backend   Backend
	decoder   media.Decoder
	filter    effect.Filter
	lastShown float64

	clips   zerolog.Logger
	frames  zerolog.Logger
	filters zerolog.Logger

	mux sync.Mutex
}

func newTrack(kind TrackKind, backend Backend, window float64, logger zerolog.Logger) (*Track, error) {
	decoder, err := backend.NewDecoder()
	if err != nil {
		return nil, fmt.Errorf("error while creating %s track decoder: %w", kind, err)
	}

	logger = logger.With().Str("track", kind.String()).Logger()

	return &Track{
		kind:     kind,
		timeline: timeline.New(window),
		backend:  backend,
		decoder:  decoder,
		clips:    logging.For(logger, logging.CategoryClipRecalc),
		frames:   logging.For(logger, logging.CategoryGetVideoFrame),
		filters:  logging.For(logger, logging.CategoryFilter),
	}, nil
}

func (t *Track) Kind() TrackKind {
	return t.kind
}

func (t *Track) Add(segment timeline.FileSegment, transition timeline.Transition) error {
	t.mux.Lock()
	defer t.mux.Unlock()

	if err := t.timeline.Add(segment, transition); err != nil {
		return err
	}
	t.logClips()

	return t.repoint()
}

func (t *Track) Split(secs float64, transition timeline.Transition) error {
	t.mux.Lock()
	defer t.mux.Unlock()

	if err := t.timeline.Split(secs, transition); err != nil {
		return err
	}
	t.logClips()

	return t.repoint()
}

func (t *Track) Segments() []timeline.TrackSegment {
	t.mux.Lock()
	defer t.mux.Unlock()

	return t.timeline.Segments()
}

func (t *Track) Clips() []timeline.Clip {
	t.mux.Lock()
	defer t.mux.Unlock()

	return t.timeline.Clips()
}

func (t *Track) Duration() float64 {
	t.mux.Lock()
	defer t.mux.Unlock()

	return t.timeline.Duration()
}

func (t *Track) End() float64 {
	t.mux.Lock()
	defer t.mux.Unlock()

	return t.timeline.End()
}

func (t *Track) Empty() bool {
	t.mux.Lock()
	defer t.mux.Unlock()

	return t.timeline.Empty()
}

// LastShown is the track time of the last frame handed out, or the last seek
// target if nothing was shown since.
func (t *Track) LastShown() float64 {
	t.mux.Lock()
	defer t.mux.Unlock()

	return t.lastShown
}

// Seek points the decoder at secs. It reports whether the next frame will
// differ from the one last shown.
func (t *Track) Seek(secs float64) (bool, error) {
	t.mux.Lock()
	defer t.mux.Unlock()

	if secs == t.lastShown {
		return false, nil
	}

	t.lastShown = secs
	t.dropFilter()

	clip, ok := t.timeline.ClipAt(secs)
	if !ok {
		return false, nil
	}

	return t.ensureDecoderAt(clip.Source, clip.SourceTime(secs))
}

func (t *Track) VideoFrame(ctx context.Context, secs float64) (media.Frame, error) {
	t.mux.Lock()
	defer t.mux.Unlock()

	clip, ok := t.timeline.ClipAt(secs)
	if !ok {
		return nil, fmt.Errorf("no clip at %.3fs on %s track: %w", secs, t.kind, media.ErrorFrameUnavailable)
	}

	previous, had := t.timeline.ClipAt(t.lastShown)
	changed := !had || previous != clip

	if t.decoder.Path() != clip.Source {
		if _, err := t.ensureDecoderAt(clip.Source, clip.SourceTime(secs)); err != nil {
			return nil, err
		}
	}

	if err := t.applyEffect(clip, changed); err != nil {
		return nil, err
	}

	frame, err := t.decoder.FrameAt(ctx, clip.SourceTime(secs), media.KindVideo)
	if err != nil {
		t.frames.Debug().Err(err).Float64("secs", secs).Msg("no frame from decoder")
		return nil, err
	}
	if frame.Width() == 0 {
		t.frames.Debug().Float64("secs", secs).Msg("got a frame with 0 width")
		return nil, fmt.Errorf("zero width frame at %.3fs: %w", secs, media.ErrorFrameUnavailable)
	}

	out := frame
	if t.filter != nil {
		if err := t.filter.Feed(frame); err != nil {
			t.filters.Error().Err(err).Stringer("effect", t.filter.Spec().Kind()).Msg("error feeding the clip filter")
			return nil, err
		}
		if out = t.filter.Output(); out == nil {
			return nil, fmt.Errorf("clip filter has no output yet: %w", media.ErrorFrameUnavailable)
		}
	}

	t.lastShown = clip.TrackTime(t.decoder.LastVideoSeconds())
	return out, nil
}

func (t *Track) NextAudioFrame() (media.Frame, error) {
	return t.decoder.NextAudioFrame()
}

// Decoder is the decoder the track feeds its filters from. It stays the
// same object for the life of the track.
func (t *Track) Decoder() media.Decoder {
	return t.decoder
}

func (t *Track) Close() {
	t.mux.Lock()
	defer t.mux.Unlock()

	t.dropFilter()
	t.decoder.Close()
}

// applyEffect keeps the per-clip filter in line with the clip about to be
// shown. A filter is replaced when it describes a different effect, or when
// the clip changed and the old one already ran its course.
func (t *Track) applyEffect(clip timeline.Clip, changed bool) error {
	spec := specFor(clip)
	if spec == nil {
		if t.filter != nil && changed {
			t.filters.Debug().Float64("last", t.lastShown).Float64("start", clip.TrackStart).Msg("clip has no effect, dropping filter")
			t.dropFilter()
		}
		return nil
	}

	if t.filter != nil && t.filter.Spec() == spec && !(changed && t.filter.Finished()) {
		return nil
	}

	t.dropFilter()
	t.filters.Debug().Stringer("effect", clip.Effect).Float64("duration", clip.Duration).Float64("last", t.lastShown).Msg("switching filter")

	f, err := t.backend.NewFilter(spec, t.decoder)
	if err != nil {
		return err
	}
	t.filter = f

	return nil
}

func (t *Track) dropFilter() {
	if t.filter == nil {
		return
	}
	t.filter.Close()
	t.filter = nil
}

// ensureDecoderAt opens source if the decoder holds another file, otherwise
// seeks when the decoder is not already at secs.
func (t *Track) ensureDecoderAt(source string, secs float64) (bool, error) {
	if t.decoder.Path() != source {
		t.dropFilter()
		if err := t.decoder.Open(source, secs); err != nil {
			return false, err
		}
		return true, nil
	}

	if t.decoder.LastVideoSeconds() != secs {
		t.decoder.Seek(secs)
		return true, nil
	}

	return false, nil
}

func (t *Track) repoint() error {
	clip, ok := t.timeline.ClipAt(t.lastShown)
	if !ok {
		return nil
	}

	_, err := t.ensureDecoderAt(clip.Source, clip.SourceTime(t.lastShown))
	return err
}

func (t *Track) logClips() {
	for _, c := range t.timeline.Clips() {
		t.clips.Debug().Str("source", c.Source).Float64("start", c.TrackStart).Float64("source_start", c.SourceStart).Float64("duration", c.Duration).Stringer("effect", c.Effect).Msg("clip")
	}
}

func specFor(clip timeline.Clip) effect.Spec {
	switch clip.Effect {
	case timeline.ClipFadeIn:
		return effect.FadeIn{Duration: clip.Duration}
	case timeline.ClipFadeOut:
		return effect.FadeOut{Duration: clip.Duration}
	default:
		return nil
	}
}
