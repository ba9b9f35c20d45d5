package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = "/tmp/config" // avoid creation

	t.Setenv("WISPR_BASE_URL", "http://10.0.0.2:5001")
	t.Setenv("WISPR_METRICS_ADDR", "1.2.3.4:9999")
	t.Setenv("WISPR_LOG_LEVEL", "debug")
	t.Setenv("WISPR_LOG_FORMAT", "json")
	t.Setenv("WISPR_POLL_INTERVAL_MS", "750")
	t.Setenv("WISPR_AUTO_STOP", "1")

	applyEnvOverrides(cfg)

	if cfg.Backend.BaseURL != "http://10.0.0.2:5001" {
		t.Fatalf("base url override failed: %q", cfg.Backend.BaseURL)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "1.2.3.4:9999" {
		t.Fatalf("metrics override failed: %+v", cfg.Metrics)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
	if cfg.PollInterval() != 750*time.Millisecond {
		t.Fatalf("poll interval override failed: %s", cfg.PollInterval())
	}
	if !cfg.VAD.AutoStop {
		t.Fatalf("auto stop should be enabled via env")
	}
}

func TestInvalidPollIntervalIgnored(t *testing.T) {
	cfg, _ := Default()
	t.Setenv("WISPR_POLL_INTERVAL_MS", "soon")
	applyEnvOverrides(cfg)
	if cfg.Poll.IntervalMS != defaultPollInterval {
		t.Fatalf("expected default interval, got %d", cfg.Poll.IntervalMS)
	}
}

func TestDefaultsMatchClientContract(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:5001" {
		t.Fatalf("base url %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.UploadFilename != "recording.webm" {
		t.Fatalf("upload filename %q", cfg.Backend.UploadFilename)
	}
	if cfg.PollInterval() != 2*time.Second || cfg.RefreshDelay() != 500*time.Millisecond {
		t.Fatalf("poll timings %s / %s", cfg.PollInterval(), cfg.RefreshDelay())
	}
	if cfg.Audio.Channels != 1 || cfg.Audio.SampleRate != 8000 {
		t.Fatalf("audio %+v", cfg.Audio)
	}
	if !cfg.Audio.EchoCancellation || !cfg.Audio.NoiseSuppression || !cfg.Audio.AutoGain {
		t.Fatalf("capture constraints should default on: %+v", cfg.Audio)
	}
}

func TestValidate(t *testing.T) {
	cfg, _ := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Poll.IntervalMS = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected zero interval to fail")
	}
	cfg.Poll.IntervalMS = 2000
	cfg.Audio.Channels = 2
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected stereo to fail")
	}
	cfg.Audio.Channels = 1
	for _, rate := range []int{0, -8000} {
		cfg.Audio.SampleRate = rate
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "audio.sample_rate") {
			t.Fatalf("expected sample rate %d to fail, got %v", rate, err)
		}
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = path
	cfg.Backend.BaseURL = "http://backend.local:5001"
	cfg.Hook.Command = "/bin/echo"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Backend.BaseURL != "http://backend.local:5001" {
		t.Fatalf("expected base url to persist, got %q", loaded.Backend.BaseURL)
	}
	if loaded.Hook.Command != "/bin/echo" {
		t.Fatalf("expected hook command to persist")
	}
	if loaded.Paths.ConfigPath != path {
		t.Fatalf("config path %q", loaded.Paths.ConfigPath)
	}
}

func TestLoadWritesTemplateWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected template written: %v", err)
	}
	if cfg.Paths.ConfigPath != path {
		t.Fatalf("config path %q", cfg.Paths.ConfigPath)
	}
}
