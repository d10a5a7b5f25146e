package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratio lets num out of every den debug events through.
type ratio struct {
	num, den uint64
}

// ratioSampler thins high-volume debug events such as per-update middleware
// logs. A zero ratio disables sampling.
type ratioSampler struct {
	ratio   atomic.Pointer[ratio]
	counter atomic.Uint64
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set replaces the ratio and restarts the cycle.
func (s *ratioSampler) Set(numerator, denominator int) {
	if numerator <= 0 || denominator <= 0 {
		s.ratio.Store(nil)
		s.counter.Store(0)
		return
	}
	numerator = min(numerator, denominator)
	s.ratio.Store(&ratio{num: uint64(numerator), den: uint64(denominator)})
	s.counter.Store(0)
}

// Allow reports whether the current event passes. The first num events of
// every cycle of den pass.
func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	if r == nil {
		return true
	}
	n := s.counter.Add(1) - 1
	return n%r.den < r.num
}

// parseSampleRatio reads logging.debug_sample: "1/10", "10" (one in ten) or
// "5%". Anything else yields 0/0.
func parseSampleRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0
	}
	if pct, ok := strings.CutSuffix(raw, "%"); ok {
		v, err := strconv.Atoi(strings.TrimSpace(pct))
		if err != nil || v <= 0 {
			return 0, 0
		}
		return min(v, 100), 100
	}
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 == nil && err2 == nil {
			return n, d
		}
		return 0, 0
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return 1, v
	}
	return 0, 0
}
