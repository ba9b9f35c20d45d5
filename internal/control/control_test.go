package control

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wispr/internal/api/apitest"
	"wispr/internal/capture"
	"wispr/internal/config"
	"wispr/internal/transcript"
)

// writeConfig saves a config pointing at baseURL under a temp state dir.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Backend.BaseURL = baseURL
	cfg.Paths.StateDir = dir
	cfg.Paths.LogPath = filepath.Join(dir, "wispr.log")
	cfg.Paths.SocketPath = filepath.Join(dir, "wispr.sock")
	cfg.Paths.PidPath = filepath.Join(dir, "wispr.pid")
	cfg.Paths.ConfigPath = filepath.Join(dir, "config.toml")
	if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
		t.Fatalf("save: %v", err)
	}
	return cfg.Paths.ConfigPath
}

func TestHistoryCmdShowsPlaceholderWhenEmpty(t *testing.T) {
	srv := apitest.NewServer(t)
	path := writeConfig(t, srv.URL)

	cmd := NewHistoryCmd(&path)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("history: %v", err)
	}
	var got []transcript.Entry
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || !got[0].IsPlaceholder() {
		t.Fatalf("got %+v", got)
	}
}

func TestStoreThenClear(t *testing.T) {
	srv := apitest.NewServer(t)
	path := writeConfig(t, srv.URL)

	store := NewStoreCmd(&path)
	store.SetOut(&bytes.Buffer{})
	store.SetArgs([]string{"um hello", "Hello."})
	if err := store.Execute(); err != nil {
		t.Fatalf("store: %v", err)
	}
	if srv.Hits("/store-transcription") != 1 {
		t.Fatalf("store not sent")
	}

	clr := NewClearCmd(&path)
	clr.SetOut(&bytes.Buffer{})
	clr.SetArgs([]string{})
	if err := clr.Execute(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if srv.Hits("/clear-history") != 1 {
		t.Fatalf("clear not sent")
	}
}

func TestTranscribeCmdResamplesWav(t *testing.T) {
	srv := apitest.NewServer(t)
	path := writeConfig(t, srv.URL)

	dir := t.TempDir()
	wavPath := filepath.Join(dir, "in.wav")
	samples := make([]int16, 1600)
	for i := range samples {
		samples[i] = int16(i % 200)
	}
	if _, err := capture.EncodeWAV(capture.Clip{Samples: samples, SampleRate: 16000}, wavPath); err != nil {
		t.Fatalf("encode: %v", err)
	}

	cmd := NewTranscribeCmd(&path)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{wavPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if !strings.Contains(out.String(), "cleaned: Hello world.") {
		t.Fatalf("output %q", out.String())
	}

	ups := srv.Uploads()
	if len(ups) != 1 {
		t.Fatalf("uploads=%d", len(ups))
	}
	sent := filepath.Join(dir, "sent.wav")
	if err := os.WriteFile(sent, ups[0].Data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	clip, err := capture.DecodeWAV(sent)
	if err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if clip.SampleRate != 8000 || len(clip.Samples) != 800 {
		t.Fatalf("upload rate=%d samples=%d", clip.SampleRate, len(clip.Samples))
	}
}

func TestTranscribeCmdSendsOtherFilesVerbatim(t *testing.T) {
	srv := apitest.NewServer(t)
	path := writeConfig(t, srv.URL)
	in := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(in, []byte("not a wav"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmd := NewTranscribeCmd(&path)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{in})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if ups := srv.Uploads(); len(ups) != 1 || string(ups[0].Data) != "not a wav" {
		t.Fatalf("uploads=%+v", ups)
	}
}

func TestParseEnvPairs(t *testing.T) {
	env, err := parseEnvPairs([]string{"A=1", "B=x=y"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if env["A"] != "1" || env["B"] != "x=y" {
		t.Fatalf("env=%v", env)
	}
	if _, err := parseEnvPairs([]string{"novalue"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTailFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "log")
	if err := os.WriteFile(p, []byte("a\nb\nc\n\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out bytes.Buffer
	if err := tailFile(&out, p, 2); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if out.String() != "b\nc\n" {
		t.Fatalf("got %q", out.String())
	}
}
