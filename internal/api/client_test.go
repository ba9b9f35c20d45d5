package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"wispr/internal/api/apitest"
	"wispr/internal/config"
	"wispr/internal/logging"
	"wispr/internal/transcript"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Backend.BaseURL = baseURL
	return New(cfg, logging.NewTestLogger())
}

func TestTranscribeUploadsMultipartAudio(t *testing.T) {
	srv := apitest.NewServer(t)
	c := newTestClient(t, srv.URL)

	res, err := c.Transcribe(context.Background(), []byte("RIFFfake"))
	require.NoError(t, err)
	assert.Equal(t, "Hello world.", res.CleanedText)
	assert.Equal(t, "hello world", res.RawText)
	require.NotNil(t, res.Transcription)
	assert.Equal(t, transcript.SourceWeb, res.Transcription.Source)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "recording.webm", uploads[0].Filename)
	assert.Equal(t, []byte("RIFFfake"), uploads[0].Data)
}

func TestTranscribeHTTPErrorIsTransport(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.FailWith("/transcribe", http.StatusInternalServerError)
	c := newTestClient(t, srv.URL)

	_, err := c.Transcribe(context.Background(), []byte("x"))
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %T: %v", err, err)
	assert.Equal(t, http.StatusInternalServerError, te.Status)
}

func TestTranscribeNetworkErrorIsTransport(t *testing.T) {
	srv := apitest.NewServer(t)
	url := srv.URL
	srv.Close()
	c := newTestClient(t, url)

	_, err := c.Transcribe(context.Background(), []byte("x"))
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %T: %v", err, err)
	assert.Zero(t, te.Status)
}

func TestTranscribeFailurePayload(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.RejectTranscriptions("Transcription failed: empty audio")
	c := newTestClient(t, srv.URL)

	_, err := c.Transcribe(context.Background(), []byte("x"))
	var ae *ApplicationError
	require.True(t, errors.As(err, &ae), "got %T: %v", err, err)
	assert.Equal(t, "Transcription failed: empty audio", ae.Message)
}

func TestTranscribeFailurePayloadFallbackMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.Transcribe(context.Background(), []byte("x"))
	var ae *ApplicationError
	require.True(t, errors.As(err, &ae), "got %T: %v", err, err)
	assert.Equal(t, "Transcription failed", ae.Message)
}

func TestTranscribeMalformedBodyIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>proxy</html>"))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	_, err := c.Transcribe(context.Background(), []byte("x"))
	var te *TransportError
	require.True(t, errors.As(err, &te), "got %T: %v", err, err)
}

func TestTranscriptionsReturnsServerOrder(t *testing.T) {
	srv := apitest.NewServer(t)
	seed := []transcript.Entry{
		{ID: "2", Timestamp: "3:01 PM", RawText: "second", CleanedText: "Second.", Source: transcript.SourceVoiceAssistant},
		{ID: "1", Timestamp: "3:00 PM", RawText: "first", CleanedText: "First.", Source: transcript.SourceWeb},
	}
	srv.Seed(seed...)
	c := newTestClient(t, srv.URL)

	got, err := c.Transcriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seed, got)
}

func TestTranscriptionsEmpty(t *testing.T) {
	srv := apitest.NewServer(t)
	c := newTestClient(t, srv.URL)

	got, err := c.Transcriptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTranscriptionsMissingListIsError(t *testing.T) {
	for _, body := range []string{`{"success":true}`, `{"success":true,"transcriptions":null}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}))
		c := newTestClient(t, srv.URL)

		got, err := c.Transcriptions(context.Background())
		var ae *ApplicationError
		require.True(t, errors.As(err, &ae), "body %s: got %T: %v", body, err, err)
		assert.Nil(t, got)
		srv.Close()
	}
}

func TestTranscriptionsHTTPError(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.FailWith("/transcriptions", http.StatusBadGateway)
	c := newTestClient(t, srv.URL)

	_, err := c.Transcriptions(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadGateway, te.Status)
}

func TestClearHistory(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.Seed(transcript.Entry{ID: "1", RawText: "x", Source: transcript.SourceWeb})
	c := newTestClient(t, srv.URL)

	require.NoError(t, c.ClearHistory(context.Background()))
	got, err := c.Transcriptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	srv.FailWith("/clear-history", http.StatusInternalServerError)
	assert.Error(t, c.ClearHistory(context.Background()))
}

func TestHealth(t *testing.T) {
	srv := apitest.NewServer(t)
	c := newTestClient(t, srv.URL)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.WhisperLoaded)
}

func TestStoreTagsVoiceAssistant(t *testing.T) {
	srv := apitest.NewServer(t)
	c := newTestClient(t, srv.URL)

	e, err := c.Store(context.Background(), "um hello", "Hello.")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, transcript.SourceVoiceAssistant, e.Source)
	assert.Equal(t, "Hello.", e.CleanedText)

	_, err = c.Store(context.Background(), " ", "")
	assert.Error(t, err)
	assert.Equal(t, 1, srv.Hits("/store-transcription"))
}

func TestTrailingSlashBaseURL(t *testing.T) {
	srv := apitest.NewServer(t)
	c := newTestClient(t, srv.URL+"/")

	_, err := c.Transcriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Hits("/transcriptions"))
}
