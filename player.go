package preview

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harshabose/preview/internal/logging"
	"github.com/harshabose/preview/pkg/media"
)

// Renderer is the part of the Editor a Player drives.
type Renderer interface {
	RequestVideoFrame(ctx context.Context, secs float64, width, height int) (media.Frame, error)
	Seek(secs float64) (bool, error)
	Duration() float64
}

// Player turns wall clock ticks into playback time. It starts paused with
// one pending frame so the first Tick shows the picture at 0.
type Player struct {
	renderer Renderer
	now      func() time.Time

	paused         bool
	justSeeked     bool
	lastFrameSecs  float64
	lastFrameClock time.Time

	logger zerolog.Logger
	mux    sync.Mutex
}

type PlayerOption = func(*Player) error

func WithClock(now func() time.Time) PlayerOption {
	return func(player *Player) error {
		player.now = now
		return nil
	}
}

func WithPlayerLogger(logger zerolog.Logger) PlayerOption {
	return func(player *Player) error {
		player.logger = logging.For(logger, logging.CategoryRealtime)
		return nil
	}
}

func NewPlayer(renderer Renderer, options ...PlayerOption) (*Player, error) {
	p := &Player{
		renderer:   renderer,
		now:        time.Now,
		paused:     true,
		justSeeked: true,
		logger:     logging.Category(logging.CategoryRealtime),
	}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	p.lastFrameClock = p.now()
	return p, nil
}

func (p *Player) Play() {
	p.mux.Lock()
	defer p.mux.Unlock()

	p.paused = false
	p.lastFrameClock = p.now()
}

func (p *Player) Pause() {
	p.mux.Lock()
	defer p.mux.Unlock()

	p.paused = true
}

func (p *Player) Toggle() {
	p.mux.Lock()
	paused := p.paused
	p.mux.Unlock()

	if paused {
		p.Play()
		return
	}
	p.Pause()
}

func (p *Player) Paused() bool {
	p.mux.Lock()
	defer p.mux.Unlock()

	return p.paused
}

// Position is the playback time the next Tick starts from.
func (p *Player) Position() float64 {
	p.mux.Lock()
	defer p.mux.Unlock()

	return p.lastFrameSecs
}

// Ended reports whether playback ran past the renderer's duration.
func (p *Player) Ended() bool {
	p.mux.Lock()
	defer p.mux.Unlock()

	return p.lastFrameSecs >= p.renderer.Duration()
}

func (p *Player) SeekTo(secs float64) error {
	p.mux.Lock()
	defer p.mux.Unlock()

	changed, err := p.renderer.Seek(secs)
	if err != nil {
		return err
	}

	p.justSeeked = changed
	p.lastFrameSecs = secs
	return nil
}

// Tick advances playback by the wall time since the previous Tick when
// playing, and asks for a frame when playing or right after a seek. A frame
// is only returned when it is new, and it stays valid until the next Tick.
// Otherwise the frame is nil and whatever the caller drew last stays up.
func (p *Player) Tick(ctx context.Context, width, height int) (media.Frame, bool, error) {
	p.mux.Lock()
	defer p.mux.Unlock()

	if !p.justSeeked && p.paused {
		return nil, false, nil
	}

	now := p.now()
	if p.justSeeked {
		p.lastFrameClock = now
	} else {
		elapsed := now.Sub(p.lastFrameClock).Seconds()
		p.logger.Debug().Float64("adding", elapsed).Msg("advance")
		p.lastFrameSecs += elapsed
		p.lastFrameClock = now
	}
	p.justSeeked = false

	p.logger.Debug().Float64("secs", p.lastFrameSecs).Msg("asking for frame")

	frame, err := p.renderer.RequestVideoFrame(ctx, p.lastFrameSecs, width, height)
	if err != nil {
		if media.IsTransient(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return frame, true, nil
}
