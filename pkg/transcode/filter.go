//go:build cgo_enabled

package transcode

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/rs/zerolog"

	"github.com/harshabose/preview/internal/logging"
	"github.com/harshabose/preview/pkg/effect"
	"github.com/harshabose/preview/pkg/media"
)

const unfed = math.MinInt64

// Filter is one built effect: a buffer source per input, the effect's graph
// body and a single sink. It is driven synchronously by Feed.
type Filter struct {
	spec        effect.Spec
	description effect.Description
	graph       *astiav.FilterGraph
	sources     []*astiav.BuffersrcFilterContext
	sink        *astiav.BuffersinkFilterContext
	params      *astiav.BuffersrcFilterContextParameters // NOTE: ONLY VALID WHILE A SOURCE IS BEING SET UP

	lastPts []int64
	fed     int
	drained bool
	output  *astiav.Frame
	scratch *astiav.Frame

	logger zerolog.Logger
	closer *astikit.Closer
	once   sync.Once
}

// CreateFilter builds spec over inputs, which are described through
// CanDescribeStream. Any failure is reported as media.ErrorGraphBuild.
func CreateFilter(spec effect.Spec, inputs []media.Decoder, options ...FilterOption) (*Filter, error) {
	filter := &Filter{
		spec:   spec,
		logger: logging.Category(logging.CategoryFilter),
		closer: astikit.NewCloser(),
	}

	if err := filter.build(inputs, options...); err != nil {
		filter.Close()
		return nil, fmt.Errorf("building %s filter: %w (%w)", spec.Kind(), err, media.ErrorGraphBuild)
	}

	filter.logger.Debug().Stringer("kind", spec.Kind()).Str("content", filter.description.Content).Int("frame_limit", filter.description.FrameLimit).Msg("filter built")
	return filter, nil
}

func (f *Filter) build(inputs []media.Decoder, options ...FilterOption) error {
	kinds := f.spec.Inputs()
	if len(inputs) != len(kinds) {
		return fmt.Errorf("got %d inputs for %d sources (%w)", len(inputs), len(kinds), ErrorInputCount)
	}

	for _, option := range options {
		if err := option(f); err != nil {
			return err
		}
	}

	f.description = f.spec.Describe(inputs[0].FrameRate())
	if f.description.Content == "" {
		f.logger.Warn().Err(WarnNoFilterContent).Stringer("kind", f.spec.Kind()).Send()
	}

	f.graph = astiav.AllocFilterGraph()
	f.closer.Add(f.graph.Free)

	sinkFilter := astiav.FindFilterByName(sinkName(effect.Output(f.spec)))
	if sinkFilter == nil {
		return ErrorNoFilterName
	}

	sink, err := f.graph.NewBuffersinkFilterContext(sinkFilter, effect.SinkName)
	if err != nil {
		return fmt.Errorf("%w (%w)", ErrorAllocSinkContext, err)
	}
	f.sink = sink

	graphInputs := astiav.AllocFilterInOut()
	defer graphInputs.Free()

	graphInputs.SetName(effect.SinkName)
	graphInputs.SetFilterContext(f.sink.FilterContext())
	graphInputs.SetPadIdx(0)
	graphInputs.SetNext(nil)

	var graphOutputs *astiav.FilterInOut
	defer func() {
		if graphOutputs != nil {
			graphOutputs.Free()
		}
	}()

	for i, input := range inputs {
		describer, ok := input.(CanDescribeStream)
		if !ok {
			return ErrorInterfaceMismatch
		}

		describe, err := describer.Describe(kinds[i])
		if err != nil {
			return err
		}

		source, err := f.addSource(i, kinds[i], describe)
		if err != nil {
			return err
		}
		f.sources = append(f.sources, source)

		o := astiav.AllocFilterInOut()
		o.SetName(effect.SourceName(i))
		o.SetFilterContext(source.FilterContext())
		o.SetPadIdx(0)
		o.SetNext(graphOutputs)
		graphOutputs = o
	}

	if err := f.graph.Parse(f.description.Content, graphInputs, graphOutputs); err != nil {
		return fmt.Errorf("%w (%w)", ErrorGraphParse, err)
	}

	if err := f.graph.Configure(); err != nil {
		return fmt.Errorf("%w (%w)", ErrorGraphConfigure, err)
	}

	f.lastPts = make([]int64, len(inputs))
	for i := range f.lastPts {
		f.lastPts[i] = unfed
	}

	f.output = astiav.AllocFrame()
	f.scratch = astiav.AllocFrame()
	f.closer.Add(f.output.Free)
	f.closer.Add(f.scratch.Free)

	return nil
}

func (f *Filter) addSource(i int, kind media.Kind, describe CanDescribeMediaFrame) (*astiav.BuffersrcFilterContext, error) {
	sourceFilter := astiav.FindFilterByName(sourceName(kind))
	if sourceFilter == nil {
		return nil, ErrorNoFilterName
	}

	source, err := f.graph.NewBuffersrcFilterContext(sourceFilter, effect.SourceName(i))
	if err != nil {
		return nil, fmt.Errorf("%w (%w)", ErrorAllocSrcContext, err)
	}

	f.params = astiav.AllocBuffersrcFilterContextParameters()
	defer func() {
		f.params.Free()
		f.params = nil
	}()

	set := withVideoSetFilterContextParameters(describe)
	if kind == media.KindAudio {
		set = withAudioSetFilterContextParameters(describe)
	}
	if err := set(f); err != nil {
		return nil, err
	}

	if err := source.SetParameters(f.params); err != nil {
		return nil, fmt.Errorf("%w (%w)", ErrorSrcContextSetParameter, err)
	}

	if err := source.Initialize(astiav.NewDictionary()); err != nil {
		return nil, fmt.Errorf("%w (%w)", ErrorSrcContextInitialise, err)
	}

	return source, nil
}

func (f *Filter) Spec() effect.Spec {
	return f.spec
}

// Feed pushes each frame whose pts differs from the last one pushed on the
// same input, then drains the sink into Output. Feeding only frames that
// were already pushed is a no-op.
func (f *Filter) Feed(frames ...media.Frame) error {
	if len(frames) != len(f.sources) {
		return fmt.Errorf("fed %d frames to %d sources (%w)", len(frames), len(f.sources), ErrorInputCount)
	}

	fresh := false
	for i, frame := range frames {
		if frame == nil || frame.Pts() == f.lastPts[i] {
			continue
		}

		af, ok := frame.(*astiav.Frame)
		if !ok {
			return ErrorInterfaceMismatch
		}

		if err := f.sources[i].AddFrame(af, astiav.NewBuffersrcFlags(astiav.BuffersrcFlagKeepRef)); err != nil {
			return fmt.Errorf("adding frame to %s: %w", effect.SourceName(i), err)
		}
		f.lastPts[i] = frame.Pts()
		fresh = true
	}

	if !fresh {
		return nil
	}
	f.fed++

	return f.drain()
}

func (f *Filter) drain() error {
	for {
		f.scratch.Unref()
		if err := f.sink.GetFrame(f.scratch, astiav.NewBuffersinkFlags()); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("getting frame from %s: %w", effect.SinkName, err)
		}
		f.output, f.scratch = f.scratch, f.output
		f.drained = true
	}
}

// Output is the last frame drained from the sink, nil before the first.
// It is owned by the filter and valid until the next Feed.
func (f *Filter) Output() media.Frame {
	if !f.drained {
		return nil
	}
	return f.output
}

func (f *Filter) Finished() bool {
	return f.description.FrameLimit > 0 && f.fed >= f.description.FrameLimit
}

func (f *Filter) Close() {
	f.once.Do(func() {
		if err := f.closer.Close(); err != nil {
			f.logger.Error().Err(err).Stringer("kind", f.spec.Kind()).Msg("closing filter")
		}
	})
}

func (f *Filter) SetLogger(logger zerolog.Logger) {
	f.logger = logger
}

func (f *Filter) SetFrameRate(describe CanDescribeFrameRate) {
	f.params.SetFramerate(describe.FrameRate())
}

func (f *Filter) SetTimeBase(describe CanDescribeTimeBase) {
	f.params.SetTimeBase(describe.TimeBase())
}

func (f *Filter) SetHeight(describe CanDescribeMediaVideoFrame) {
	f.params.SetHeight(describe.Height())
}

func (f *Filter) SetWidth(describe CanDescribeMediaVideoFrame) {
	f.params.SetWidth(describe.Width())
}

func (f *Filter) SetPixelFormat(describe CanDescribeMediaVideoFrame) {
	f.params.SetPixelFormat(describe.PixelFormat())
}

func (f *Filter) SetSampleAspectRatio(describe CanDescribeMediaVideoFrame) {
	f.params.SetSampleAspectRatio(describe.SampleAspectRatio())
}

func (f *Filter) SetColorSpace(describe CanDescribeMediaVideoFrame) {
	f.params.SetColorSpace(describe.ColorSpace())
}

func (f *Filter) SetColorRange(describe CanDescribeMediaVideoFrame) {
	f.params.SetColorRange(describe.ColorRange())
}

func (f *Filter) SetSampleRate(describe CanDescribeMediaAudioFrame) {
	f.params.SetSampleRate(describe.SampleRate())
}

func (f *Filter) SetSampleFormat(describe CanDescribeMediaAudioFrame) {
	f.params.SetSampleFormat(describe.SampleFormat())
}

func (f *Filter) SetChannelLayout(describe CanDescribeMediaAudioFrame) {
	f.params.SetChannelLayout(describe.ChannelLayout())
}

func sourceName(kind media.Kind) string {
	if kind == media.KindAudio {
		return "abuffer"
	}
	return "buffer"
}

func sinkName(kind media.Kind) string {
	if kind == media.KindAudio {
		return "abuffersink"
	}
	return "buffersink"
}
