// Package capture records microphone audio into clips.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wispr/internal/config"
)

// ErrNoBackend is returned when the binary was built without a capture backend.
var ErrNoBackend = errors.New("no capture backend; build with -tags portaudio")

// Constraints describe how the microphone is opened.
type Constraints struct {
	DeviceName       string
	SampleRate       int
	Channels         int
	FrameMS          int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGain         bool

	AutoStop          bool
	SilenceMS         int
	VADAggressiveness int
}

// ConstraintsFromConfig reads the [audio] and [vad] sections.
func ConstraintsFromConfig(cfg *config.Config) Constraints {
	return Constraints{
		DeviceName:        cfg.Audio.DeviceName,
		SampleRate:        cfg.Audio.SampleRate,
		Channels:          cfg.Audio.Channels,
		FrameMS:           cfg.Audio.FrameMS,
		EchoCancellation:  cfg.Audio.EchoCancellation,
		NoiseSuppression:  cfg.Audio.NoiseSuppression,
		AutoGain:          cfg.Audio.AutoGain,
		AutoStop:          cfg.VAD.AutoStop,
		SilenceMS:         cfg.VAD.SilenceMS,
		VADAggressiveness: cfg.VAD.Aggressiveness,
	}
}

// Clip is a finished mono 16-bit recording.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Duration is the clip length.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Resample returns the clip converted to rate.
func (c Clip) Resample(rate int) Clip {
	if rate <= 0 || rate == c.SampleRate {
		return c
	}
	return Clip{Samples: resampleLinear(c.Samples, c.SampleRate, rate), SampleRate: rate}
}

// Device opens capture streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is one live capture. Stop releases the device and returns everything
// buffered so far.
type Stream interface {
	Stop() (Clip, error)
	// Silence fires once after speech followed by the configured silence.
	// It is nil when auto-stop is off.
	Silence() <-chan struct{}
}

// DeviceAccessError covers permission denial and hardware failures.
type DeviceAccessError struct {
	Err error
}

func (e *DeviceAccessError) Error() string {
	return fmt.Sprintf("microphone access denied: %v", e.Err)
}

func (e *DeviceAccessError) Unwrap() error { return e.Err }

// DeviceInfo describes an input device.
type DeviceInfo struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Channels   int     `json:"channels"`
	SampleRate float64 `json:"sample_rate"`
	LatencyMs  float64 `json:"latency_ms"`
	Default    bool    `json:"default"`
}
