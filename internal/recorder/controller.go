// Package recorder drives one microphone capture at a time and hands each
// finished clip to the transcription backend.
package recorder

import (
	"context"
	"errors"
	"sync"

	"wispr/internal/api"
	"wispr/internal/capture"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// User-visible status messages.
const (
	MsgMicDenied          = "Microphone access denied. Please allow microphone permissions."
	MsgBackendUnreachable = "Failed to connect to transcription service. Make sure the backend is running."
	MsgTranscriptionFail  = "Transcription failed"
)

var (
	// ErrBusy is returned by Start while a session is recording, processing or opening.
	ErrBusy = errors.New("recorder busy")
	// ErrNotRecording is returned by Stop outside Recording.
	ErrNotRecording = errors.New("not recording")
)

// Uploader sends a finished clip for transcription.
type Uploader interface {
	Transcribe(ctx context.Context, audio []byte) (*api.TranscribeResult, error)
}

// Encoder turns a clip into the uploaded container bytes.
type Encoder func(capture.Clip) ([]byte, error)

// Option configures a Controller.
type Option func(*Controller)

// WithEncoder replaces the default WAV encoder.
func WithEncoder(enc Encoder) Option {
	return func(c *Controller) { c.encode = enc }
}

// WithOnChange registers a callback fired after every state or message change.
func WithOnChange(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithOnTranscribed registers a callback fired after each successful upload.
func WithOnTranscribed(fn func(*api.TranscribeResult)) Option {
	return func(c *Controller) { c.onTranscribed = fn }
}

// Controller owns the Idle/Recording/Processing lifecycle.
type Controller struct {
	device      capture.Device
	constraints capture.Constraints
	uploader    Uploader
	encode      Encoder
	logger      *logrus.Logger

	onChange      func()
	onTranscribed func(*api.TranscribeResult)

	mu        sync.Mutex
	state     State
	opening   bool
	stream    capture.Stream
	stopped   chan struct{}
	sessionID uuid.UUID
	errMsg    string

	pending sync.WaitGroup
}

// New returns an idle controller.
func New(device capture.Device, constraints capture.Constraints, uploader Uploader, logger *logrus.Logger, opts ...Option) *Controller {
	c := &Controller{
		device:      device,
		constraints: constraints,
		uploader:    uploader,
		logger:      logger,
		encode: func(clip capture.Clip) ([]byte, error) {
			return capture.EncodeWAV(clip, "")
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the message for the status region, or "".
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Status returns state and message together.
func (c *Controller) Status() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.errMsg
}

// Start opens the microphone. It only has an effect from Idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle || c.opening {
		c.mu.Unlock()
		return ErrBusy
	}
	c.opening = true
	c.errMsg = ""
	c.pending.Add(1)
	c.mu.Unlock()
	defer c.pending.Done()
	c.changed()

	stream, err := c.device.Open(ctx, c.constraints)
	if err == nil && ctx.Err() != nil {
		// Torn down while the device was opening.
		if _, stopErr := stream.Stop(); stopErr != nil {
			c.logger.Debugf("release stream after cancel: %v", stopErr)
		}
		c.mu.Lock()
		c.opening = false
		c.mu.Unlock()
		c.changed()
		return ctx.Err()
	}

	c.mu.Lock()
	c.opening = false
	if err != nil {
		c.errMsg = MsgMicDenied
		c.mu.Unlock()
		c.logger.Errorf("start recording: %v", err)
		c.changed()
		var dae *capture.DeviceAccessError
		if !errors.As(err, &dae) {
			err = &capture.DeviceAccessError{Err: err}
		}
		return err
	}
	c.state, _ = c.state.next(evStarted)
	c.stream = stream
	c.sessionID = uuid.New()
	stopped := make(chan struct{})
	c.stopped = stopped
	id := c.sessionID
	c.mu.Unlock()

	c.logger.WithField("session", id).Info("recording started")
	c.changed()
	if silence := stream.Silence(); silence != nil {
		go c.watchSilence(ctx, silence, stopped)
	}
	return nil
}

// Stop finalizes the capture, releases the device and starts the upload.
// It only has an effect from Recording. The upload outlives ctx; it is bounded
// by the client's request timeout.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	next, ok := c.state.next(evStopped)
	if !ok {
		c.mu.Unlock()
		return ErrNotRecording
	}
	stream := c.stream
	c.stream = nil
	close(c.stopped)
	c.stopped = nil
	id := c.sessionID
	c.state = next
	c.pending.Add(1)
	c.mu.Unlock()
	c.changed()

	clip, stopErr := stream.Stop()
	c.logger.WithField("session", id).Infof("recording stopped (%s)", clip.Duration())
	go c.upload(context.WithoutCancel(ctx), id, clip, stopErr)
	return nil
}

// Toggle is the mic trigger: stop while recording, start while idle, and do
// nothing while processing.
func (c *Controller) Toggle(ctx context.Context) error {
	switch c.State() {
	case Recording:
		return c.Stop(ctx)
	case Idle:
		return c.Start(ctx)
	default:
		return ErrBusy
	}
}

// Wait blocks until in-flight device opens and uploads settle.
func (c *Controller) Wait() {
	c.pending.Wait()
}

func (c *Controller) watchSilence(ctx context.Context, silence <-chan struct{}, stopped <-chan struct{}) {
	select {
	case <-silence:
		c.logger.Info("silence detected, stopping")
		if err := c.Stop(ctx); err != nil && !errors.Is(err, ErrNotRecording) {
			c.logger.Warnf("auto-stop: %v", err)
		}
	case <-stopped:
	case <-ctx.Done():
	}
}

func (c *Controller) upload(ctx context.Context, id uuid.UUID, clip capture.Clip, stopErr error) {
	defer c.pending.Done()
	log := c.logger.WithField("session", id)

	res, msg := c.transcribe(ctx, log, clip, stopErr)

	c.mu.Lock()
	c.state, _ = c.state.next(evSettled)
	if msg != "" {
		c.errMsg = msg
	}
	c.mu.Unlock()
	c.changed()

	if res != nil && c.onTranscribed != nil {
		c.onTranscribed(res)
	}
}

// transcribe returns either a result or the message to surface.
func (c *Controller) transcribe(ctx context.Context, log *logrus.Entry, clip capture.Clip, stopErr error) (*api.TranscribeResult, string) {
	if stopErr != nil {
		log.Warnf("finalize capture: %v", stopErr)
	}
	data, err := c.encode(clip)
	if err != nil {
		log.Errorf("encode clip: %v", err)
		return nil, MsgBackendUnreachable
	}
	res, err := c.uploader.Transcribe(ctx, data)
	if err != nil {
		log.Errorf("sending audio to backend: %v", err)
		return nil, uploadMessage(err)
	}
	log.Infof("transcription successful: %q", res.CleanedText)
	return res, ""
}

func uploadMessage(err error) string {
	var ae *api.ApplicationError
	if errors.As(err, &ae) {
		if ae.Message != "" {
			return ae.Message
		}
		return MsgTranscriptionFail
	}
	return MsgBackendUnreachable
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
