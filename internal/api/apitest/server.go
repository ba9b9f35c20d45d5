// Package apitest runs an in-memory transcription backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"wispr/internal/transcript"

	"github.com/gorilla/mux"
)

// Upload is one received /transcribe request.
type Upload struct {
	Filename string
	Data     []byte
}

// Server fakes the backend endpoints the client uses. Entries are kept newest
// first, like the real service.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	entries       []transcript.Entry
	uploads       []Upload
	hits          map[string]int
	nextID        int
	failStatus    map[string]int
	transcribeErr string
	cleaned       string
	release       chan struct{}
}

// NewServer starts a fake backend closed at test cleanup.
func NewServer(t testing.TB) *Server {
	s := &Server{
		hits:       map[string]int{},
		failStatus: map[string]int{},
		nextID:     1,
		cleaned:    "Hello world.",
	}
	r := mux.NewRouter()
	r.HandleFunc("/transcribe", s.count("/transcribe", s.transcribe)).Methods(http.MethodPost)
	r.HandleFunc("/transcriptions", s.count("/transcriptions", s.list)).Methods(http.MethodGet)
	r.HandleFunc("/clear-history", s.count("/clear-history", s.clear)).Methods(http.MethodPost)
	r.HandleFunc("/store-transcription", s.count("/store-transcription", s.store)).Methods(http.MethodPost)
	r.HandleFunc("/health", s.count("/health", s.health)).Methods(http.MethodGet)
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// FailWith makes path answer with status until reset with 0.
func (s *Server) FailWith(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus[path] = status
}

// RejectTranscriptions makes /transcribe answer success:false with msg.
func (s *Server) RejectTranscriptions(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcribeErr = msg
}

// HoldTranscribe blocks /transcribe until the returned func is called.
func (s *Server) HoldTranscribe() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.release = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Seed replaces the stored history.
func (s *Server) Seed(entries ...transcript.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]transcript.Entry(nil), entries...)
}

// Uploads returns the received uploads.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) count(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[path]++
		status := s.failStatus[path]
		s.mu.Unlock()
		if status != 0 {
			writeJSON(w, status, map[string]any{"error": fmt.Sprintf("forced status %d", status)})
			return
		}
		next(w, r)
	}
}

func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	release := s.release
	s.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
	}
	f, hdr, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No audio file provided"})
		return
	}
	defer f.Close()
	data, _ := io.ReadAll(f)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, Upload{Filename: hdr.Filename, Data: data})
	if s.transcribeErr != "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": s.transcribeErr})
		return
	}
	e := s.addLocked("hello world", s.cleaned, transcript.SourceWeb)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"raw_text":      e.RawText,
		"cleaned_text":  e.CleanedText,
		"language":      "en",
		"transcription": e,
	})
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]transcript.Entry{}, s.entries...)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "transcriptions": out})
}

func (s *Server) clear(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Transcription history cleared successfully"})
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RawText     string `json:"raw_text"`
		CleanedText string `json:"cleaned_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No data provided"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.addLocked(body.RawText, body.CleanedText, transcript.SourceVoiceAssistant)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "transcription": e})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "whisper_loaded": true})
}

func (s *Server) addLocked(raw, cleaned string, src transcript.Source) transcript.Entry {
	e := transcript.Entry{
		ID:          strconv.Itoa(s.nextID),
		Timestamp:   "3:00 PM",
		RawText:     raw,
		CleanedText: cleaned,
		Source:      src,
	}
	s.nextID++
	s.entries = append([]transcript.Entry{e}, s.entries...)
	return e
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
