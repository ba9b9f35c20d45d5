//go:build portaudio

package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	vad "github.com/maxhawkins/go-webrtcvad"
	"github.com/sirupsen/logrus"
)

type paDevice struct {
	logger *logrus.Logger
}

// NewDevice returns the PortAudio microphone.
func NewDevice(logger *logrus.Logger) Device {
	return &paDevice{logger: logger}
}

func (d *paDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if c.Channels != 1 {
		return nil, &DeviceAccessError{Err: fmt.Errorf("only mono input supported (got %d channels)", c.Channels)}
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, &DeviceAccessError{Err: fmt.Errorf("portaudio init: %w", err)}
	}
	dev, err := selectDevice(c.DeviceName)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, &DeviceAccessError{Err: err}
	}
	if c.EchoCancellation || c.NoiseSuppression {
		d.logger.Debug("echo cancellation and noise suppression are left to the host audio stack")
	}

	nativeRate := int(dev.DefaultSampleRate)
	frameMS := c.FrameMS
	if frameMS <= 0 {
		frameMS = 20
	}
	frames := nativeRate * frameMS / 1000
	buf := make([]int16, frames)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(nativeRate),
		FramesPerBuffer: frames,
	}, &buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, &DeviceAccessError{Err: fmt.Errorf("open stream: %w", err)}
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, &DeviceAccessError{Err: fmt.Errorf("start stream: %w", err)}
	}

	s := &paStream{
		logger:     d.logger,
		stream:     stream,
		buf:        buf,
		nativeRate: nativeRate,
		c:          c,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	if c.AutoStop {
		if err := s.initVAD(frameMS); err != nil {
			d.logger.Warnf("auto-stop disabled: %v", err)
		}
	}
	d.logger.Infof("recording from mic: %s @ %d Hz (target %d Hz)", dev.Name, nativeRate, c.SampleRate)
	go s.readLoop()
	return s, nil
}

type paStream struct {
	logger     *logrus.Logger
	stream     *portaudio.Stream
	buf        []int16
	nativeRate int
	c          Constraints

	mu      sync.Mutex
	samples []int16
	readErr error

	vad       *vad.VAD
	vadFrame  int
	vadBuf    []int16
	tracker   *silenceTracker
	silenceCh chan struct{}

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (s *paStream) initVAD(frameMS int) error {
	rate := s.c.SampleRate
	frame := rate * frameMS / 1000
	if !vad.ValidRateAndFrameLength(rate, frame) {
		return fmt.Errorf("invalid frame_ms %d for sample_rate %d", frameMS, rate)
	}
	v, err := vad.New()
	if err != nil {
		return err
	}
	if err := v.SetMode(s.c.VADAggressiveness); err != nil {
		return fmt.Errorf("vad mode: %w", err)
	}
	s.vad = v
	s.vadFrame = frame
	s.tracker = newSilenceTracker(time.Duration(s.c.SilenceMS) * time.Millisecond)
	s.silenceCh = make(chan struct{})
	return nil
}

func (s *paStream) Silence() <-chan struct{} {
	if s.silenceCh == nil {
		return nil
	}
	return s.silenceCh
}

func (s *paStream) readLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		default:
		}
		if err := s.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				s.logger.Warn("input overflow")
				continue
			}
			s.mu.Lock()
			s.readErr = fmt.Errorf("stream read: %w", err)
			s.mu.Unlock()
			return
		}
		frame := resampleLinear(s.buf, s.nativeRate, s.c.SampleRate)
		s.mu.Lock()
		s.samples = append(s.samples, frame...)
		s.mu.Unlock()
		if s.vad != nil {
			s.detectSilence(frame)
		}
	}
}

func (s *paStream) detectSilence(frame []int16) {
	s.vadBuf = append(s.vadBuf, frame...)
	raw := make([]byte, s.vadFrame*2)
	for len(s.vadBuf) >= s.vadFrame {
		for i, v := range s.vadBuf[:s.vadFrame] {
			binary.LittleEndian.PutUint16(raw[i*2:], uint16(v))
		}
		s.vadBuf = s.vadBuf[s.vadFrame:]
		voice, err := s.vad.Process(s.c.SampleRate, raw)
		if err != nil {
			s.logger.Debugf("vad: %v", err)
			continue
		}
		if s.tracker.observe(voice, time.Now()) {
			close(s.silenceCh)
		}
	}
}

func (s *paStream) Stop() (Clip, error) {
	var stopErr error
	s.stopOnce.Do(func() {
		close(s.quit)
		<-s.done
		if err := s.stream.Stop(); err != nil {
			stopErr = fmt.Errorf("stop stream: %w", err)
		}
		_ = s.stream.Close()
		_ = portaudio.Terminate()
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	samples := s.samples
	s.samples = nil
	if s.c.AutoGain {
		normalizeGain(samples)
	}
	clip := Clip{Samples: samples, SampleRate: s.c.SampleRate}
	if s.readErr != nil && len(samples) == 0 {
		return clip, s.readErr
	}
	return clip, stopErr
}

func selectDevice(preferred string) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if preferred != "" {
		for _, d := range devs {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(preferred)) {
				return d, nil
			}
		}
	}
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		return def, nil
	}
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, errors.New("no input devices found")
}

// ListDevices returns the available input devices.
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	def, _ := portaudio.DefaultInputDevice()
	out := []DeviceInfo{}
	for i, d := range devs {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, DeviceInfo{
			Index:      i,
			Name:       d.Name,
			Channels:   d.MaxInputChannels,
			SampleRate: d.DefaultSampleRate,
			LatencyMs:  d.DefaultLowInputLatency.Seconds() * 1000,
			Default:    def != nil && d.Name == def.Name,
		})
	}
	return out, nil
}

// Probe reports whether PortAudio can be initialized.
func Probe() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	return portaudio.Terminate()
}
