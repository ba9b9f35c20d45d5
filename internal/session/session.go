// Package session owns one running UI: it wires the recorder to the backend,
// keeps the transcription history fresh and serves the control socket.
package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"wispr/internal/api"
	"wispr/internal/capture"
	"wispr/internal/config"
	"wispr/internal/hook"
	"wispr/internal/recorder"
	"wispr/internal/transcript"

	"github.com/sirupsen/logrus"
)

// Session manages the recorder, history poller, hook dispatch, metrics and
// control endpoint for a single run.
type Session struct {
	cfg       *config.Config
	logger    *logrus.Logger
	client    *api.Client
	history   *transcript.History
	rec       *recorder.Controller
	hooks     *hook.Queue
	out       io.Writer
	headless  bool
	startedAt time.Time

	metrics  metrics
	renderMu sync.Mutex

	// ctx is the run context, set before any goroutine starts.
	ctx context.Context
	wg  sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithOutput sets where frames are rendered.
func WithOutput(w io.Writer) Option {
	return func(s *Session) { s.out = w }
}

// Headless disables rendering and keyboard input.
func Headless() Option {
	return func(s *Session) { s.headless = true }
}

// New builds a session around device and the configured backend.
func New(cfg *config.Config, logger *logrus.Logger, device capture.Device, opts ...Option) *Session {
	s := &Session{
		cfg:       cfg,
		logger:    logger,
		client:    api.New(cfg, logger),
		history:   transcript.NewHistory(),
		out:       os.Stdout,
		startedAt: time.Now(),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if r := hook.NewRunner(cfg, logger); r.Enabled() {
		s.hooks = hook.NewQueue(r, cfg.Hook.QueueSize)
	}
	s.rec = recorder.New(device, capture.ConstraintsFromConfig(cfg),
		countingUploader{client: s.client, metrics: &s.metrics}, logger,
		recorder.WithEncoder(func(clip capture.Clip) ([]byte, error) {
			return capture.EncodeWAV(clip, cfg.Paths.RecordingPath)
		}),
		recorder.WithOnChange(s.render),
		recorder.WithOnTranscribed(s.transcribed),
	)
	return s
}

// History exposes the displayed list.
func (s *Session) History() *transcript.History { return s.history }

// Recorder exposes the capture controller.
func (s *Session) Recorder() *recorder.Controller { return s.rec }

// Run mounts the session and blocks until ctx ends, a signal arrives, the user
// quits or input reaches EOF. in may be nil.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	if s.cfg.Paths.SocketPath != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.controlLoop(ctx)
		}()
	}
	if s.cfg.Metrics.Enabled {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.metricsServe(ctx, s.cfg.Metrics.Addr)
		}()
	}
	if s.hooks != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.hooks.Work(ctx)
		}()
	}

	s.render()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.poll(ctx)
	}()

	if in != nil && !s.headless {
		go s.inputLoop(ctx, in, cancel)
	}

	<-ctx.Done()
	s.logger.Info("session shutting down")
	if s.rec.State() == recorder.Recording {
		// The upload is detached from ctx, so the take is still sent.
		if err := s.rec.Stop(ctx); err != nil {
			s.logger.Debugf("stop on shutdown: %v", err)
		}
	}
	// Waits for uploads and for a Start still opening the device.
	s.rec.Wait()
	s.wg.Wait()
	return nil
}

// poll fetches immediately, then on every tick until ctx ends. Ticks do not
// wait for earlier fetches.
func (s *Session) poll(ctx context.Context) {
	s.Refresh(ctx)
	ticker := time.NewTicker(s.cfg.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.Refresh(ctx)
			}()
		}
	}
}

// Refresh replaces the history with the server's list. Failures are logged
// and leave the list untouched.
func (s *Session) Refresh(ctx context.Context) {
	s.metrics.polls.Add(1)
	entries, err := s.client.Transcriptions(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.metrics.pollFailures.Add(1)
		s.logger.Warnf("fetching transcriptions: %v", err)
		return
	}
	if s.history.Apply(entries) {
		s.render()
	}
}

// Clear wipes the server history and refetches on success.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.client.ClearHistory(ctx); err != nil {
		s.logger.Errorf("clearing history: %v", err)
		return err
	}
	s.metrics.clears.Add(1)
	s.logger.Info("history cleared")
	s.Refresh(ctx)
	return nil
}

func (s *Session) transcribed(res *api.TranscribeResult) {
	s.scheduleRefresh(s.cfg.RefreshDelay())
	if s.hooks == nil || strings.TrimSpace(res.CleanedText) == "" {
		return
	}
	s.hooks.Enqueue(hook.Job{
		Text:      res.CleanedText,
		RawText:   res.RawText,
		Timestamp: time.Now(),
	})
}

func (s *Session) scheduleRefresh(delay time.Duration) {
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			s.Refresh(ctx)
		}
	}()
}

func (s *Session) inputLoop(ctx context.Context, in io.Reader, quit context.CancelFunc) {
	defer quit()
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "":
			if err := s.rec.Toggle(ctx); err != nil && !errors.Is(err, recorder.ErrBusy) {
				s.logger.Debugf("toggle: %v", err)
			}
		case "c", "clear":
			if s.history.HasReal() {
				_ = s.Clear(ctx)
			}
		case "r", "refresh":
			s.Refresh(ctx)
		case "q", "quit", "exit":
			return
		default:
			s.render()
		}
	}
}

func (s *Session) render() {
	if s.headless {
		return
	}
	state, msg := s.rec.Status()
	v := View{
		State:    state,
		Err:      msg,
		Entries:  s.history.Entries(),
		ShowRaw:  s.cfg.UI.ShowRaw,
		Tail:     s.cfg.UI.StatusTail,
		CanClear: s.history.HasReal(),
		Clear:    s.cfg.UI.ClearScreen,
	}
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if err := Render(s.out, v); err != nil {
		s.logger.Debugf("render: %v", err)
	}
}
