//go:build cgo_enabled

package transcode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/rs/zerolog"

	"github.com/harshabose/preview/internal/cond"
	"github.com/harshabose/preview/internal/logging"
	"github.com/harshabose/preview/pkg/config"
	"github.com/harshabose/preview/pkg/framecache"
	"github.com/harshabose/preview/pkg/media"
)

// Decoder owns one open media file. A worker goroutine keeps a small
// look-ahead of decoded video and audio frames in pts ordered caches and
// performs seeks on its behalf.
//
// Lock order: lifecycle, seek, video cache, audio cache. The state lock
// (cond.L) is a leaf.
type Decoder struct {
	config config.DecoderConfig
	logger zerolog.Logger

	lifecycle     sync.RWMutex
	path          string
	formatContext *astiav.FormatContext
	packet        *astiav.Packet
	video         *stream
	audio         *stream
	pool          *framePool
	closer        *astikit.Closer

	seek sync.Mutex

	cond      *cond.ContextCond
	seeking   bool
	target    float64
	eof       bool
	err       error
	progress  uint64
	lastVideo float64

	// onAudio is handed to the audio consumer. It is referenced, never
	// pooled, so reopening the file cannot free it while it is being fed.
	held    sync.Mutex
	onAudio *astiav.Frame

	wake   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func CreateDecoder(ctx context.Context, options ...DecoderOption) (*Decoder, error) {
	decoder := &Decoder{
		config: config.Default().Decoder,
		logger: logging.Category(logging.CategoryDecoder),
		cond:   cond.NewContextCond(&sync.Mutex{}),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
	}

	for _, option := range options {
		if err := option(decoder); err != nil {
			return nil, err
		}
	}

	return decoder, nil
}

func (d *Decoder) SetDecoderConfig(c config.DecoderConfig) {
	d.config = c
}

func (d *Decoder) SetLogger(logger zerolog.Logger) {
	d.logger = logger
}

// Open binds the decoder to path, replacing any file opened before. A
// positive seekTo is queued as the first seek.
func (d *Decoder) Open(path string, seekTo float64) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	d.close()

	closer := astikit.NewCloser()
	if err := d.open(path, closer); err != nil {
		if err := closer.Close(); err != nil {
			d.logger.Error().Err(err).Msg("releasing partially opened decoder")
		}
		d.reset()
		return fmt.Errorf("opening %s: %w (%w)", path, err, media.ErrorOpen)
	}
	d.closer = closer
	d.path = path

	d.cond.L.Lock()
	d.seeking = seekTo > 0
	d.target = seekTo
	d.eof = false
	d.err = nil
	d.lastVideo = 0
	d.cond.L.Unlock()

	ctx, cancel := context.WithCancel(d.ctx)
	d.cancel = cancel

	d.logger.Debug().Str("path", path).Float64("seek_to", seekTo).Bool("video", d.video != nil).Bool("audio", d.audio != nil).Msg("opened")

	d.wg.Add(1)
	go d.loop(ctx)

	return nil
}

func (d *Decoder) open(path string, closer *astikit.Closer) error {
	d.pool = newFramePool()
	closer.Add(d.pool.free)

	d.formatContext = astiav.AllocFormatContext()
	if d.formatContext == nil {
		return ErrorAllocateFormatContext
	}
	closer.Add(d.formatContext.Free)

	if err := d.formatContext.OpenInput(path, nil, nil); err != nil {
		return err
	}
	closer.Add(d.formatContext.CloseInput)

	if err := d.formatContext.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("finding stream info (%w)", err)
	}

	for _, s := range d.formatContext.Streams() {
		var (
			kind      media.Kind
			frameRate astiav.Rational
		)
		switch s.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if d.video != nil {
				continue
			}
			kind = media.KindVideo
			frameRate = d.formatContext.GuessFrameRate(s, nil)
		case astiav.MediaTypeAudio:
			if d.audio != nil {
				continue
			}
			kind = media.KindAudio
		default:
			continue
		}

		st, err := newStream(kind, s, frameRate)
		if err != nil {
			return fmt.Errorf("%s stream %d (%w)", kind, s.Index(), err)
		}
		closer.Add(st.close)

		st.cache = framecache.New[*astiav.Frame](d.config.MaxCached, d.pool.put)
		closer.Add(st.cache.Purge)

		if kind == media.KindVideo {
			d.video = st
		} else {
			d.audio = st
		}
	}

	if d.video == nil && d.audio == nil {
		return ErrorNoStreamFound
	}

	d.packet = astiav.AllocPacket()
	closer.Add(d.packet.Free)

	return nil
}

// Close stops the worker and releases everything Open acquired, including
// the last audio frame handed out. The decoder can be opened again
// afterwards.
func (d *Decoder) Close() {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	d.close()
	d.releaseAudio()
}

func (d *Decoder) close() {
	if d.cancel == nil {
		return
	}

	d.cancel()
	d.wg.Wait()
	d.cancel = nil

	if err := d.closer.Close(); err != nil {
		d.logger.Error().Err(err).Str("path", d.path).Msg("closing decoder")
	}
	d.reset()

	d.logger.Debug().Msg("closed")
}

func (d *Decoder) reset() {
	d.closer = nil
	d.path = ""
	d.formatContext = nil
	d.packet = nil
	d.video = nil
	d.audio = nil
	d.pool = nil

	d.cond.L.Lock()
	d.seeking = false
	d.eof = false
	d.err = nil
	d.cond.L.Unlock()
}

func (d *Decoder) Path() string {
	d.lifecycle.RLock()
	defer d.lifecycle.RUnlock()

	return d.path
}

func (d *Decoder) Err() error {
	d.cond.L.Lock()
	defer d.cond.L.Unlock()

	return d.err
}

func (d *Decoder) LastVideoSeconds() float64 {
	d.cond.L.Lock()
	defer d.cond.L.Unlock()

	return d.lastVideo
}

func (d *Decoder) HasVideo() bool {
	d.lifecycle.RLock()
	defer d.lifecycle.RUnlock()

	return d.video != nil
}

func (d *Decoder) HasAudio() bool {
	d.lifecycle.RLock()
	defer d.lifecycle.RUnlock()

	return d.audio != nil
}

func (d *Decoder) FrameRate() float64 {
	d.lifecycle.RLock()
	defer d.lifecycle.RUnlock()

	if d.video == nil {
		return 0
	}
	return d.video.frameRate.Float64()
}

func (d *Decoder) Describe(kind media.Kind) (CanDescribeMediaFrame, error) {
	d.lifecycle.RLock()
	defer d.lifecycle.RUnlock()

	s := d.streamOf(kind)
	if s == nil {
		return nil, fmt.Errorf("%s has no %s stream (%w)", d.path, kind, ErrorUnsupportedMedia)
	}

	d.seek.Lock()
	defer d.seek.Unlock()

	return s.describe(), nil
}

// Seek queues a reposition to secs and returns at once. Queuing the target
// that is already pending does nothing.
func (d *Decoder) Seek(secs float64) {
	d.cond.L.Lock()
	if d.seeking && d.target == secs {
		d.cond.L.Unlock()
		return
	}
	d.seeking = true
	d.target = secs
	d.cond.L.Unlock()

	d.logger.Debug().Float64("target", secs).Msg("seek requested")
	d.poke()
}

// FrameAt returns the cached frame with the greatest pts not after secs and
// drops every older frame. When secs is outside the cached window the
// decoder is seeked and the lookup retried. The frame belongs to the
// decoder and stays valid until the next FrameAt for the same kind.
func (d *Decoder) FrameAt(ctx context.Context, secs float64, kind media.Kind) (media.Frame, error) {
	d.lifecycle.RLock()
	defer d.lifecycle.RUnlock()

	if d.cancel == nil {
		return nil, media.ErrorDecoderClosed
	}

	s := d.streamOf(kind)
	if s == nil {
		return nil, fmt.Errorf("%s has no %s stream (%w)", d.path, kind, media.ErrorFrameUnavailable)
	}
	target := s.pts(secs)

	for attempt := 0; attempt <= d.config.SeekRetries; attempt++ {
		if err := d.awaitSeek(ctx); err != nil {
			return nil, err
		}

		seen, eof, err := d.snapshot()
		if err != nil {
			return nil, err
		}

		f, miss := d.lookup(s, target)
		switch {
		case miss == framecache.Hit:
			if kind == media.KindVideo {
				d.cond.L.Lock()
				d.lastVideo = s.seconds(f.Pts())
				d.cond.L.Unlock()
			}
			d.poke()
			return f, nil
		case eof && miss != framecache.Before:
			return nil, fmt.Errorf("%.3fs is past the end of %s (%w)", secs, d.path, media.ErrorFrameUnavailable)
		case miss == framecache.Empty || (miss == framecache.After && s.cache.Len() < d.config.LowWatermark):
			if err := d.waitProgress(ctx, seen); err != nil {
				return nil, err
			}
		default:
			d.logger.Debug().Float64("target", secs).Stringer("miss", miss).Msg("frame outside cache, seeking")
			d.Seek(secs)
		}
	}

	return nil, fmt.Errorf("no %s frame at %.3fs in %s (%w)", kind, secs, d.path, media.ErrorFrameUnavailable)
}

// NextAudioFrame pops the earliest cached audio frame. The frame stays
// valid until the next call or Close, even when the decoder is reopened on
// another file in between.
func (d *Decoder) NextAudioFrame() (media.Frame, error) {
	d.lifecycle.RLock()
	defer d.lifecycle.RUnlock()

	if d.audio == nil {
		return nil, fmt.Errorf("%s has no audio stream (%w)", d.path, media.ErrorFrameUnavailable)
	}
	if err := d.Err(); err != nil {
		return nil, err
	}

	if !d.seek.TryLock() {
		return nil, fmt.Errorf("seek in progress (%w)", media.ErrorFrameUnavailable)
	}
	f, ok := d.audio.cache.PopFirst()
	d.seek.Unlock()

	if !ok {
		return nil, fmt.Errorf("no cached audio (%w)", media.ErrorFrameUnavailable)
	}
	defer d.pool.put(f)

	d.held.Lock()
	defer d.held.Unlock()

	if d.onAudio == nil {
		d.onAudio = astiav.AllocFrame()
	}
	d.onAudio.Unref()
	if err := d.onAudio.Ref(f); err != nil {
		return nil, fmt.Errorf("referencing audio frame: %w (%w)", err, media.ErrorDecode)
	}

	d.poke()
	return d.onAudio, nil
}

func (d *Decoder) releaseAudio() {
	d.held.Lock()
	defer d.held.Unlock()

	if d.onAudio != nil {
		d.onAudio.Free()
		d.onAudio = nil
	}
}

func (d *Decoder) streamOf(kind media.Kind) *stream {
	if kind == media.KindVideo {
		return d.video
	}
	return d.audio
}

func (d *Decoder) lookup(s *stream, target int64) (*astiav.Frame, framecache.Miss) {
	d.seek.Lock()
	defer d.seek.Unlock()

	return s.cache.At(target)
}

func (d *Decoder) snapshot() (progress uint64, eof bool, err error) {
	d.cond.L.Lock()
	defer d.cond.L.Unlock()

	return d.progress, d.eof, d.err
}

// awaitSeek blocks while a seek is queued or running, for at most the seek
// timeout.
func (d *Decoder) awaitSeek(ctx context.Context) error {
	ctx2, cancel := context.WithTimeout(ctx, d.config.SeekTimeout)
	defer cancel()

	d.cond.L.Lock()
	defer d.cond.L.Unlock()

	for d.seeking && d.err == nil {
		if err := d.cond.Wait(ctx2); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("seek to %.3fs still running (%w)", d.target, media.ErrorFrameUnavailable)
		}
	}

	return d.err
}

// waitProgress blocks until the worker reports anything after seen, for at
// most the seek timeout. Running out of time is not an error.
func (d *Decoder) waitProgress(ctx context.Context, seen uint64) error {
	ctx2, cancel := context.WithTimeout(ctx, d.config.SeekTimeout)
	defer cancel()

	d.cond.L.Lock()
	defer d.cond.L.Unlock()

	for d.progress == seen {
		if err := d.cond.Wait(ctx2); err != nil {
			return ctx.Err()
		}
	}

	return nil
}

// notify applies update under the state lock and wakes all waiters.
func (d *Decoder) notify(update func()) {
	d.cond.L.Lock()
	if update != nil {
		update()
	}
	d.progress++
	d.cond.L.Unlock()

	d.cond.Broadcast()
}

func (d *Decoder) poke() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Decoder) loop(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if target, ok := d.pending(); ok {
			if err := d.reposition(ctx, target); err != nil {
				d.fail(err)
				return
			}
			continue
		}

		if d.satisfied() {
			d.idle(ctx)
			continue
		}

		if err := d.decodeNext(d.insert); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				d.drain()
				d.notify(func() { d.eof = true })
				d.logger.Debug().Str("path", d.path).Msg("end of stream")
				continue
			}
			d.fail(err)
			return
		}
	}
}

func (d *Decoder) pending() (float64, bool) {
	d.cond.L.Lock()
	defer d.cond.L.Unlock()

	return d.target, d.seeking
}

func (d *Decoder) satisfied() bool {
	d.cond.L.Lock()
	eof := d.eof
	d.cond.L.Unlock()

	if eof {
		return true
	}

	return d.filled(d.video) && d.filled(d.audio)
}

func (d *Decoder) filled(s *stream) bool {
	return s == nil || s.cache.Len() >= d.config.LowWatermark
}

func (d *Decoder) idle(ctx context.Context) {
	timer := time.NewTimer(d.config.IdleInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-d.wake:
	case <-timer.C:
	}
}

func (d *Decoder) fail(err error) {
	d.logger.Error().Err(err).Str("path", d.path).Msg("decoder stopped")
	d.notify(func() {
		d.err = err
		d.seeking = false
	})
}

func (d *Decoder) insert(s *stream, f *astiav.Frame) {
	if s.cache.Put(f) {
		d.notify(nil)
	}
}

// decodeNext reads one packet and hands every frame it yields to handle.
// Packets of streams that are not decoded are skipped.
func (d *Decoder) decodeNext(handle func(*stream, *astiav.Frame)) error {
	if err := d.formatContext.ReadFrame(d.packet); err != nil {
		return err
	}
	defer d.packet.Unref()

	s := d.streamAt(d.packet.StreamIndex())
	if s == nil {
		return nil
	}

	err := s.context.SendPacket(d.packet)
	if errors.Is(err, astiav.ErrEagain) {
		// the codec wants its output read before it takes more input
		if err := d.receive(s, handle); err != nil {
			return err
		}
		err = s.context.SendPacket(d.packet)
	}
	if err != nil {
		return fmt.Errorf("sending %s packet: %w (%w)", s.kind, err, media.ErrorDecode)
	}

	return d.receive(s, handle)
}

func (d *Decoder) receive(s *stream, handle func(*stream, *astiav.Frame)) error {
	for {
		f := d.pool.get()
		if err := s.context.ReceiveFrame(f); err != nil {
			d.pool.put(f)
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("receiving %s frame: %w (%w)", s.kind, err, media.ErrorDecode)
		}
		handle(s, f)
	}
}

// drain flushes the frames the codecs still buffer at end of stream.
func (d *Decoder) drain() {
	for _, s := range []*stream{d.video, d.audio} {
		if s == nil {
			continue
		}
		if err := s.context.SendPacket(nil); err != nil {
			continue
		}
		if err := d.receive(s, d.insert); err != nil {
			d.logger.Warn().Err(err).Stringer("kind", s.kind).Msg("draining codec")
		}
	}
}

func (d *Decoder) streamAt(index int) *stream {
	if d.video != nil && d.video.index == index {
		return d.video
	}
	if d.audio != nil && d.audio.index == index {
		return d.audio
	}
	return nil
}

func (d *Decoder) caches() []*framecache.Cache[*astiav.Frame] {
	var caches []*framecache.Cache[*astiav.Frame]
	for _, s := range []*stream{d.video, d.audio} {
		if s != nil {
			caches = append(caches, s.cache)
		}
	}
	return caches
}

// reposition resets the codecs, empties both caches, seeks the container
// to the key frame before target and decodes forward until the reference
// stream yields a frame at or after it.
func (d *Decoder) reposition(ctx context.Context, target float64) error {
	d.seek.Lock()
	defer d.seek.Unlock()

	ref := d.video
	if ref == nil {
		ref = d.audio
	}

	err := framecache.Invalidate(func() error {
		for _, s := range []*stream{d.video, d.audio} {
			if s == nil {
				continue
			}
			if err := s.reopen(); err != nil {
				return fmt.Errorf("reopening %s codec: %w (%w)", s.kind, err, media.ErrorSeek)
			}
		}
		return nil
	}, d.caches()...)
	if err != nil {
		return err
	}

	if err := d.formatContext.SeekFrame(ref.index, ref.pts(target), astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("seeking %s to %.3fs: %w (%w)", d.path, target, err, media.ErrorSeek)
	}

	// the latest frame at or before target per stream, so the floor lookup
	// for target has something to land on
	before := map[*stream]*astiav.Frame{}
	defer func() {
		for s, f := range before {
			s.cache.Put(f)
		}
	}()

	var found, eof bool
	for !found {
		if ctx.Err() != nil {
			return nil
		}

		err := d.decodeNext(func(s *stream, f *astiav.Frame) {
			if f.Pts() <= s.pts(target) {
				if prev, ok := before[s]; ok {
					d.pool.put(prev)
				}
				before[s] = f
				return
			}
			if prev, ok := before[s]; ok {
				s.cache.Put(prev)
				delete(before, s)
			}
			s.cache.Put(f)
			if s == ref {
				found = true
			}
		})
		if errors.Is(err, astiav.ErrEof) {
			eof = true
			break
		}
		if err != nil {
			return err
		}
	}

	for s, f := range before {
		s.cache.Put(f)
		delete(before, s)
	}

	d.notify(func() {
		if d.target == target {
			d.seeking = false
		}
		d.eof = eof
	})

	d.logger.Debug().Float64("target", target).Bool("eof", eof).Msg("seek done")
	return nil
}
