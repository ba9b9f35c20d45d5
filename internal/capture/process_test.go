package capture

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"
)

func TestResampleLinearLength(t *testing.T) {
	in := []int16{0, 1, 2, 3}
	out := resampleLinear(in, 16000, 8000)
	if len(out) != 2 {
		t.Fatalf("downsample length got %d", len(out))
	}
	out = resampleLinear(in, 8000, 16000)
	if len(out) != 8 {
		t.Fatalf("upsample length got %d", len(out))
	}
}

func TestResampleLinearEnds(t *testing.T) {
	in := []int16{0, 1000}
	out := resampleLinear(in, 1000, 2000)
	if out[0] != 0 || out[len(out)-1] != 1000 {
		t.Fatalf("endpoints not preserved: %v", out)
	}
}

func TestResampleSameRateCopies(t *testing.T) {
	in := []int16{5, 6}
	out := resampleLinear(in, 8000, 8000)
	out[0] = 9
	if in[0] != 5 {
		t.Fatalf("same-rate resample aliases input")
	}
}

func TestNormalizeGainBoostsQuietClip(t *testing.T) {
	s := []int16{0, 1000, -2000, 500}
	normalizeGain(s)
	if s[2] != -16000 {
		t.Fatalf("expected gain capped at 8x, got %v", s)
	}
}

func TestNormalizeGainReachesTarget(t *testing.T) {
	s := []int16{10000, -5000}
	normalizeGain(s)
	want := int16(math.Round(autoGainTarget))
	if s[0] != want {
		t.Fatalf("peak %d want %d", s[0], want)
	}
}

func TestNormalizeGainLeavesSilenceAndLoud(t *testing.T) {
	silent := []int16{0, 0, 0}
	normalizeGain(silent)
	for _, v := range silent {
		if v != 0 {
			t.Fatalf("silence changed: %v", silent)
		}
	}
	loud := []int16{math.MaxInt16, -100}
	normalizeGain(loud)
	if loud[1] != -100 {
		t.Fatalf("loud clip should be untouched: %v", loud)
	}
}

func TestSilenceTracker(t *testing.T) {
	base := time.Unix(0, 0)
	tr := newSilenceTracker(time.Second)

	if tr.observe(false, base.Add(5*time.Second)) {
		t.Fatalf("leading silence must not fire")
	}
	tr.observe(true, base.Add(6*time.Second))
	if tr.observe(false, base.Add(6500*time.Millisecond)) {
		t.Fatalf("short pause must not fire")
	}
	if !tr.observe(false, base.Add(7*time.Second)) {
		t.Fatalf("expected fire after one second of silence")
	}
	if tr.observe(false, base.Add(9*time.Second)) {
		t.Fatalf("must fire at most once")
	}
}

func TestEncodeDecodeWAV(t *testing.T) {
	clip := Clip{Samples: []int16{0, 100, -100, 32767, -32768}, SampleRate: 8000}
	path := filepath.Join(t.TempDir(), "last.wav")
	data, err := EncodeWAV(clip, path)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE header")
	}
	got, err := DecodeWAV(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SampleRate != 8000 || len(got.Samples) != len(clip.Samples) {
		t.Fatalf("decoded %+v", got)
	}
	for i := range clip.Samples {
		if got.Samples[i] != clip.Samples[i] {
			t.Fatalf("sample %d: %d != %d", i, got.Samples[i], clip.Samples[i])
		}
	}
}

func TestEncodeWAVRejectsMissingRate(t *testing.T) {
	if _, err := EncodeWAV(Clip{Samples: []int16{1}}, ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestClipDuration(t *testing.T) {
	c := Clip{Samples: make([]int16, 4000), SampleRate: 8000}
	if c.Duration() != 500*time.Millisecond {
		t.Fatalf("duration %s", c.Duration())
	}
}

func TestDeviceAccessErrorUnwraps(t *testing.T) {
	err := error(&DeviceAccessError{Err: ErrNoBackend})
	if !errors.Is(err, ErrNoBackend) {
		t.Fatalf("expected unwrap to ErrNoBackend")
	}
}

func TestClipResample(t *testing.T) {
	c := Clip{Samples: make([]int16, 1600), SampleRate: 16000}
	out := c.Resample(8000)
	if out.SampleRate != 8000 || len(out.Samples) != 800 {
		t.Fatalf("rate=%d len=%d", out.SampleRate, len(out.Samples))
	}
	if same := c.Resample(16000); len(same.Samples) != 1600 {
		t.Fatalf("same-rate resample changed length")
	}
	if c.Duration() != out.Duration() {
		t.Fatalf("duration changed: %s vs %s", c.Duration(), out.Duration())
	}
}
