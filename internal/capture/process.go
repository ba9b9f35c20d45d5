package capture

import (
	"math"
	"time"
)

// autoGainTarget is the peak level normalized clips are scaled to.
const (
	autoGainTarget  = 0.9 * math.MaxInt16
	autoGainMaxGain = 8.0
)

func resampleLinear(in []int16, srcSR, dstSR int) []int16 {
	if srcSR == dstSR || len(in) == 0 || srcSR <= 0 || dstSR <= 0 {
		out := make([]int16, len(in))
		copy(out, in)
		return out
	}
	ratio := float64(dstSR) / float64(srcSR)
	outLen := int(float64(len(in))*ratio + 0.9999)
	out := make([]int16, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(math.Round(float64(in[idx])*(1-frac) + float64(in[idx+1])*frac))
	}
	return out
}

// normalizeGain scales samples so the peak reaches autoGainTarget. Quiet
// clips are boosted at most autoGainMaxGain times; loud ones are left alone.
func normalizeGain(samples []int16) {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	if peak == 0 || peak >= autoGainTarget {
		return
	}
	gain := math.Min(autoGainTarget/peak, autoGainMaxGain)
	for i, s := range samples {
		v := math.Round(float64(s) * gain)
		v = math.Max(math.MinInt16, math.Min(math.MaxInt16, v))
		samples[i] = int16(v)
	}
}

// silenceTracker decides when a pause after speech is long enough to stop.
type silenceTracker struct {
	silence   time.Duration
	heard     bool
	lastVoice time.Time
	fired     bool
}

func newSilenceTracker(silence time.Duration) *silenceTracker {
	return &silenceTracker{silence: silence}
}

// observe records one frame classification and reports whether to stop now.
// Leading silence never fires, and it fires at most once.
func (t *silenceTracker) observe(voice bool, now time.Time) bool {
	if t.fired {
		return false
	}
	if voice {
		t.heard = true
		t.lastVoice = now
		return false
	}
	if t.heard && now.Sub(t.lastVoice) >= t.silence {
		t.fired = true
		return true
	}
	return false
}
