package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/harshabose/preview/pkg/effect"
	"github.com/harshabose/preview/pkg/media"
)

type fakeFrame struct {
	pts   int64
	width int
}

func (f fakeFrame) Pts() int64 { return f.pts }
func (f fakeFrame) Width() int { return f.width }

const (
	decodedWidth  = 320
	filteredWidth = 640
)

type fakeDecoder struct {
	mux       sync.Mutex
	lengths   map[string]float64
	audioFor  map[string][]media.Frame
	broken    map[string]bool
	path      string
	opens     []string
	seeks     []float64
	last      float64
	audio     []media.Frame
	zeroWidth bool
	closed    bool
}

func (d *fakeDecoder) Open(path string, _ float64) error {
	d.mux.Lock()
	defer d.mux.Unlock()

	if _, ok := d.lengths[path]; !ok {
		return fmt.Errorf("no such file %s: %w", path, media.ErrorOpen)
	}
	if d.broken[path] {
		return fmt.Errorf("no decoder for %s: %w", path, media.ErrorOpen)
	}
	d.path = path
	d.opens = append(d.opens, path)
	d.last = 0
	d.audio = append([]media.Frame(nil), d.audioFor[path]...)
	return nil
}

func (d *fakeDecoder) Close() {
	d.mux.Lock()
	defer d.mux.Unlock()

	d.closed = true
	d.path = ""
}

func (d *fakeDecoder) Path() string {
	d.mux.Lock()
	defer d.mux.Unlock()

	return d.path
}

func (d *fakeDecoder) LastVideoSeconds() float64 {
	d.mux.Lock()
	defer d.mux.Unlock()

	return d.last
}

func (d *fakeDecoder) Err() error { return nil }

func (d *fakeDecoder) Seek(secs float64) {
	d.mux.Lock()
	defer d.mux.Unlock()

	d.seeks = append(d.seeks, secs)
}

func (d *fakeDecoder) FrameAt(_ context.Context, secs float64, _ media.Kind) (media.Frame, error) {
	d.mux.Lock()
	defer d.mux.Unlock()

	if d.path == "" {
		return nil, media.ErrorDecoderClosed
	}
	if secs >= d.lengths[d.path] {
		return nil, media.ErrorFrameUnavailable
	}

	d.last = secs
	if d.zeroWidth {
		return fakeFrame{pts: int64(secs * 1000)}, nil
	}
	return fakeFrame{pts: int64(secs * 1000), width: decodedWidth}, nil
}

func (d *fakeDecoder) NextAudioFrame() (media.Frame, error) {
	d.mux.Lock()
	defer d.mux.Unlock()

	if d.path == "" {
		return nil, media.ErrorDecoderClosed
	}
	if len(d.audio) == 0 {
		return nil, media.ErrorFrameUnavailable
	}
	f := d.audio[0]
	d.audio = d.audio[1:]
	return f, nil
}

func (d *fakeDecoder) HasVideo() bool     { return true }
func (d *fakeDecoder) HasAudio() bool     { return len(d.audioFor[d.Path()]) > 0 }
func (d *fakeDecoder) FrameRate() float64 { return 30 }

func (d *fakeDecoder) seekCount() int {
	d.mux.Lock()
	defer d.mux.Unlock()

	return len(d.seeks)
}

type fakeFilter struct {
	spec   effect.Spec
	inputs []media.Decoder
	fed    [][]media.Frame
	out    media.Frame
	closed bool
}

func (f *fakeFilter) Spec() effect.Spec { return f.spec }

func (f *fakeFilter) Feed(frames ...media.Frame) error {
	if len(frames) != len(f.inputs) {
		return errors.New("wrong number of frames")
	}
	f.fed = append(f.fed, frames)
	f.out = fakeFrame{pts: frames[0].Pts(), width: filteredWidth}
	return nil
}

func (f *fakeFilter) Output() media.Frame { return f.out }

func (f *fakeFilter) Finished() bool {
	limit := f.spec.Describe(30).FrameLimit
	return limit > 0 && len(f.fed) >= limit
}

func (f *fakeFilter) Close() { f.closed = true }

type fakeBackend struct {
	mux      sync.Mutex
	lengths  map[string]float64
	audio    map[string][]media.Frame
	broken   map[string]bool
	decoders []*fakeDecoder
	filters  []*fakeFilter
}

func newFakeBackend(lengths map[string]float64) *fakeBackend {
	return &fakeBackend{lengths: lengths, audio: map[string][]media.Frame{}, broken: map[string]bool{}}
}

func (b *fakeBackend) NewDecoder() (media.Decoder, error) {
	b.mux.Lock()
	defer b.mux.Unlock()

	d := &fakeDecoder{lengths: b.lengths, audioFor: b.audio, broken: b.broken}
	b.decoders = append(b.decoders, d)
	return d, nil
}

func (b *fakeBackend) NewFilter(spec effect.Spec, inputs ...media.Decoder) (effect.Filter, error) {
	if len(inputs) != len(spec.Inputs()) {
		return nil, media.ErrorGraphBuild
	}

	b.mux.Lock()
	defer b.mux.Unlock()

	f := &fakeFilter{spec: spec, inputs: inputs}
	b.filters = append(b.filters, f)
	return f, nil
}

func (b *fakeBackend) Probe(path string) (float64, error) {
	length, ok := b.lengths[path]
	if !ok {
		return 0, fmt.Errorf("no such file %s: %w", path, media.ErrorOpen)
	}
	return length, nil
}

func (b *fakeBackend) filtersOf(kind effect.Kind) []*fakeFilter {
	b.mux.Lock()
	defer b.mux.Unlock()

	var out []*fakeFilter
	for _, f := range b.filters {
		if f.spec.Kind() == kind {
			out = append(out, f)
		}
	}
	return out
}
