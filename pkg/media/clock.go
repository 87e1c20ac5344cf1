package media

import (
	"math"
)

// TimeBase is the libav internal time base (microseconds).
const TimeBase = 1000000

// Rational mirrors a libav rational without depending on cgo.
type Rational struct {
	Num int
	Den int
}

func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// SecondsToPts converts stream-relative seconds to a presentation timestamp
// in time base tb. Negative start times (unset in libav) count as zero.
func SecondsToPts(secs float64, tb Rational, start int64) int64 {
	if !tb.Valid() {
		return 0
	}
	if start < 0 {
		start = 0
	}
	return int64(math.Round(secs*float64(tb.Den)/float64(tb.Num))) + start
}

func PtsToSeconds(pts int64, tb Rational, start int64) float64 {
	if !tb.Valid() {
		return 0
	}
	if start < 0 {
		start = 0
	}
	return float64(pts-start) * tb.Float64()
}

// FramesIn is the number of frames a stream at rate fps shows in secs.
func FramesIn(secs float64, fps float64) int {
	if secs <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Round(secs * fps))
}
