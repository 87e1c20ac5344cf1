package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harshabose/preview/internal/logging"
	"github.com/harshabose/preview/pkg/config"
	"github.com/harshabose/preview/pkg/media"
	"github.com/harshabose/preview/pkg/timeline"
)

var ErrorNoBackend = errors.New("no media backend configured")

// Editor is what a GUI talks to. Timeline edits and seeks take the write
// lock; frame requests share the read lock so a render loop and an audio
// pull can run side by side, each from its own goroutine.
type Editor struct {
	video   *Video
	backend Backend
	config  *config.Config
	logger  zerolog.Logger
	closed  bool

	mux sync.RWMutex
	ctx context.Context
}

func NewEditor(ctx context.Context, options ...EditorOption) (*Editor, error) {
	e := &Editor{
		config: config.FromContext(ctx),
		logger: logging.WithComponent("editor"),
		ctx:    ctx,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	if e.backend == nil {
		return nil, ErrorNoBackend
	}

	video, err := newVideo(e.backend, e.config, e.logger)
	if err != nil {
		return nil, err
	}
	e.video = video

	return e, nil
}

// Append probes path and places all of it at the end of the given track.
func (e *Editor) Append(kind TrackKind, path string, transition timeline.Transition) error {
	e.mux.Lock()
	defer e.mux.Unlock()

	if e.closed {
		return media.ErrorDecoderClosed
	}

	track, err := e.video.Track(kind)
	if err != nil {
		return err
	}

	duration, err := e.backend.Probe(path)
	if err != nil {
		return fmt.Errorf("error while probing %s: %w", path, err)
	}
	if duration <= 0 {
		return fmt.Errorf("%s reports no duration: %w", path, media.ErrorOpen)
	}

	segment := timeline.NewFileSegment(path, track.End(), 0, duration)
	if err := track.Add(segment, transition); err != nil {
		return err
	}

	e.logger.Info().Str("path", path).Stringer("track", kind).Stringer("transition", transition).Float64("start", segment.TrackStart).Float64("duration", duration).Msg("appended")
	return nil
}

func (e *Editor) Split(kind TrackKind, secs float64, transition timeline.Transition) error {
	e.mux.Lock()
	defer e.mux.Unlock()

	if e.closed {
		return media.ErrorDecoderClosed
	}

	track, err := e.video.Track(kind)
	if err != nil {
		return err
	}

	return track.Split(secs, transition)
}

// Seek reports whether the picture will change.
func (e *Editor) Seek(secs float64) (bool, error) {
	e.mux.Lock()
	defer e.mux.Unlock()

	if e.closed {
		return false, media.ErrorDecoderClosed
	}

	return e.video.Seek(secs)
}

func (e *Editor) Duration() float64 {
	e.mux.RLock()
	defer e.mux.RUnlock()

	return e.video.Duration()
}

func (e *Editor) LastShownTime() float64 {
	e.mux.RLock()
	defer e.mux.RUnlock()

	return e.video.LastShown()
}

func (e *Editor) Segments(kind TrackKind) ([]timeline.TrackSegment, error) {
	e.mux.RLock()
	defer e.mux.RUnlock()

	track, err := e.video.Track(kind)
	if err != nil {
		return nil, err
	}
	return track.Segments(), nil
}

func (e *Editor) Clips(kind TrackKind) ([]timeline.Clip, error) {
	e.mux.RLock()
	defer e.mux.RUnlock()

	track, err := e.video.Track(kind)
	if err != nil {
		return nil, err
	}
	return track.Clips(), nil
}

// RequestVideoFrame returns the composed picture at secs. The frame belongs
// to the editor and stays valid until the next RequestVideoFrame. A
// media.ErrorFrameUnavailable means "keep showing the previous frame".
func (e *Editor) RequestVideoFrame(ctx context.Context, secs float64, width, height int) (media.Frame, error) {
	e.mux.RLock()
	defer e.mux.RUnlock()

	if e.closed {
		return nil, media.ErrorDecoderClosed
	}

	return e.video.VideoFrame(ctx, secs, width, height)
}

// RequestAudioFrame returns the next mixed audio frame in the configured
// output format, valid until the next RequestAudioFrame.
func (e *Editor) RequestAudioFrame(ctx context.Context) (media.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mux.RLock()
	defer e.mux.RUnlock()

	if e.closed {
		return nil, media.ErrorDecoderClosed
	}

	return e.video.NextAudioFrame()
}

func (e *Editor) Close() {
	e.mux.Lock()
	defer e.mux.Unlock()

	if e.closed {
		return
	}
	e.closed = true

	e.video.Close()
}
