package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"wispr/internal/api"
)

type metrics struct {
	uploads        atomic.Int64
	uploadFailures atomic.Int64
	polls          atomic.Int64
	pollFailures   atomic.Int64
	clears         atomic.Int64
}

// countingUploader records upload outcomes on the way to the backend.
type countingUploader struct {
	client  *api.Client
	metrics *metrics
}

func (u countingUploader) Transcribe(ctx context.Context, audio []byte) (*api.TranscribeResult, error) {
	u.metrics.uploads.Add(1)
	res, err := u.client.Transcribe(ctx, audio)
	if err != nil {
		u.metrics.uploadFailures.Add(1)
	}
	return res, err
}

func (s *Session) writeMetrics(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "wispr_uploads_total %d\n", s.metrics.uploads.Load())
	fmt.Fprintf(w, "wispr_upload_failures_total %d\n", s.metrics.uploadFailures.Load())
	fmt.Fprintf(w, "wispr_polls_total %d\n", s.metrics.polls.Load())
	fmt.Fprintf(w, "wispr_poll_failures_total %d\n", s.metrics.pollFailures.Load())
	fmt.Fprintf(w, "wispr_clears_total %d\n", s.metrics.clears.Load())
	fmt.Fprintf(w, "wispr_history_entries %d\n", s.history.Len())
	if s.hooks != nil {
		fmt.Fprintf(w, "wispr_hooks_sent_total %d\n", s.hooks.Sent.Load())
		fmt.Fprintf(w, "wispr_hooks_dropped_total %d\n", s.hooks.Dropped.Load())
		fmt.Fprintf(w, "wispr_hooks_failed_total %d\n", s.hooks.Failed.Load())
	}
}

func (s *Session) metricsServe(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.writeMetrics)
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	s.logger.Infof("metrics listening on http://%s/metrics", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warnf("metrics server: %v", err)
	}
}
