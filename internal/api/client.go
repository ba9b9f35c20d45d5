// Package api talks to the transcription backend over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wispr/internal/config"
	"wispr/internal/transcript"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	pathTranscribe     = "/transcribe"
	pathTranscriptions = "/transcriptions"
	pathClearHistory   = "/clear-history"
	pathHealth         = "/health"
	pathStore          = "/store-transcription"

	audioField = "audio"

	fallbackTranscribeError = "Transcription failed"
)

// Client wraps the backend endpoints. Requests are never retried.
type Client struct {
	http     *resty.Client
	logger   *logrus.Logger
	filename string
}

// TranscribeResult is the payload of a successful /transcribe call.
type TranscribeResult struct {
	RawText       string            `json:"raw_text"`
	CleanedText   string            `json:"cleaned_text"`
	Language      string            `json:"language"`
	Transcription *transcript.Entry `json:"transcription"`
}

// Health is the /health payload.
type Health struct {
	Status        string `json:"status"`
	WhisperLoaded bool   `json:"whisper_loaded"`
}

// Summary is a one-line description for status output.
func (h *Health) Summary() string {
	model := "model not loaded"
	if h.WhisperLoaded {
		model = "model loaded"
	}
	return fmt.Sprintf("%s (%s)", h.Status, model)
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type transcribeResponse struct {
	envelope
	TranscribeResult
}

type transcriptionsResponse struct {
	envelope
	Transcriptions *[]transcript.Entry `json:"transcriptions"`
}

type storeResponse struct {
	envelope
	Transcription *transcript.Entry `json:"transcription"`
}

// New builds a client for cfg.Backend.
func New(cfg *config.Config, logger *logrus.Logger) *Client {
	hc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Backend.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetLogger(logger)
	if cfg.Backend.TimeoutSec > 0 {
		hc.SetTimeout(time.Duration(float64(time.Second) * cfg.Backend.TimeoutSec))
	}
	filename := cfg.Backend.UploadFilename
	if filename == "" {
		filename = config.DefaultUploadFilename
	}
	return &Client{http: hc, logger: logger, filename: filename}
}

// Transcribe uploads one recorded clip as multipart field "audio".
func (c *Client) Transcribe(ctx context.Context, audio []byte) (*TranscribeResult, error) {
	const op = "transcribe"
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader(audioField, c.filename, bytes.NewReader(audio)).
		Post(pathTranscribe)
	var out transcribeResponse
	if err := decode(op, resp, err, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = fallbackTranscribeError
		}
		return nil, &ApplicationError{Op: op, Message: msg}
	}
	c.logger.WithField("bytes", len(audio)).Debugf("transcription successful: %q", out.CleanedText)
	return &out.TranscribeResult, nil
}

// Transcriptions fetches the server-side history in server order. A success
// reply without a transcriptions array is an ApplicationError.
func (c *Client) Transcriptions(ctx context.Context) ([]transcript.Entry, error) {
	const op = "transcriptions"
	resp, err := c.http.R().SetContext(ctx).Get(pathTranscriptions)
	var out transcriptionsResponse
	if err := decode(op, resp, err, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &ApplicationError{Op: op, Message: firstNonEmpty(out.Error, "request failed")}
	}
	// A missing or null list is not an empty history.
	if out.Transcriptions == nil {
		return nil, &ApplicationError{Op: op, Message: "response has no transcriptions"}
	}
	return *out.Transcriptions, nil
}

// ClearHistory asks the server to drop all stored transcriptions.
func (c *Client) ClearHistory(ctx context.Context) error {
	const op = "clear-history"
	resp, err := c.http.R().SetContext(ctx).Post(pathClearHistory)
	var out envelope
	if err := decode(op, resp, err, &out); err != nil {
		return err
	}
	if !out.Success {
		return &ApplicationError{Op: op, Message: firstNonEmpty(out.Error, "request failed")}
	}
	return nil
}

// Health reports backend liveness and whether its model is loaded.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.http.R().SetContext(ctx).Get(pathHealth)
	var out Health
	if err := decode("health", resp, err, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Store records text captured elsewhere; the server tags it voice_assistant.
func (c *Client) Store(ctx context.Context, raw, cleaned string) (*transcript.Entry, error) {
	const op = "store-transcription"
	if strings.TrimSpace(raw) == "" && strings.TrimSpace(cleaned) == "" {
		return nil, fmt.Errorf("%s: no text provided", op)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"raw_text": raw, "cleaned_text": cleaned}).
		Post(pathStore)
	var out storeResponse
	if err := decode(op, resp, err, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &ApplicationError{Op: op, Message: firstNonEmpty(out.Error, "request failed")}
	}
	return out.Transcription, nil
}

func decode(op string, resp *resty.Response, err error, v any) error {
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if !resp.IsSuccess() {
		return &TransportError{Op: op, Status: resp.StatusCode()}
	}
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode(), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func firstNonEmpty(parts ...string) string {
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			return p
		}
	}
	return ""
}
