//go:build cgo_enabled

package transcode

import (
	"sync"

	"github.com/asticode/go-astiav"
)

// framePool recycles frame structs. Frames are unreferenced on put so only
// the struct is kept, never the picture or sample data.
type framePool struct {
	mux    sync.Mutex
	frames []*astiav.Frame
	closed bool
}

func newFramePool() *framePool {
	return &framePool{}
}

func (p *framePool) get() *astiav.Frame {
	p.mux.Lock()
	defer p.mux.Unlock()

	if n := len(p.frames); n > 0 {
		f := p.frames[n-1]
		p.frames = p.frames[:n-1]
		return f
	}
	return astiav.AllocFrame()
}

func (p *framePool) put(f *astiav.Frame) {
	if f == nil {
		return
	}
	f.Unref()

	p.mux.Lock()
	defer p.mux.Unlock()

	if p.closed {
		f.Free()
		return
	}
	p.frames = append(p.frames, f)
}

func (p *framePool) free() {
	p.mux.Lock()
	defer p.mux.Unlock()

	for _, f := range p.frames {
		f.Free()
	}
	p.frames = nil
	p.closed = true
}
