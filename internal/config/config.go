package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultBaseURL        = "http://localhost:5001"
	DefaultUploadFilename = "recording.webm"
	defaultPollInterval   = 2000
	defaultRefreshDelay   = 500
	defaultStatusTail     = 50
	defaultStateDirLinux  = ".local/state/wispr"
	defaultConfigDir      = ".config/wispr"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Backend struct {
		BaseURL        string  `toml:"base_url"`
		TimeoutSec     float64 `toml:"timeout_sec"` // 0 keeps the transport default
		UploadFilename string  `toml:"upload_filename"`
	} `toml:"backend"`

	Audio struct {
		DeviceName       string `toml:"device_name"`
		SampleRate       int    `toml:"sample_rate"`
		Channels         int    `toml:"channels"`
		FrameMS          int    `toml:"frame_ms"`
		EchoCancellation bool   `toml:"echo_cancellation"`
		NoiseSuppression bool   `toml:"noise_suppression"`
		AutoGain         bool   `toml:"auto_gain"`
	} `toml:"audio"`

	VAD struct {
		AutoStop       bool `toml:"auto_stop"`
		SilenceMS      int  `toml:"silence_ms"`
		Aggressiveness int  `toml:"aggressiveness"`
	} `toml:"vad"`

	Poll struct {
		IntervalMS     int `toml:"interval_ms"`
		RefreshDelayMS int `toml:"refresh_delay_ms"`
	} `toml:"poll"`

	Hook struct {
		Command    string            `toml:"command"`
		Args       []string          `toml:"args"`
		Prefix     string            `toml:"prefix"`
		QueueSize  int               `toml:"queue_size"`
		TimeoutSec float64           `toml:"timeout_sec"`
		Env        map[string]string `toml:"env"`
		RedactPII  bool              `toml:"redact_pii"`
	} `toml:"hook"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stderr bool   `toml:"stderr"`
	} `toml:"logging"`

	Paths struct {
		StateDir      string `toml:"state_dir"`
		LogPath       string `toml:"log_path"`
		SocketPath    string `toml:"socket_path"`
		PidPath       string `toml:"pid_path"`
		RecordingPath string `toml:"recording_path"` // empty disables keeping the last clip
		ConfigPath    string `toml:"-"`
	} `toml:"paths"`

	UI struct {
		StatusTail  int  `toml:"status_tail"`
		ShowRaw     bool `toml:"show_raw"`
		ClearScreen bool `toml:"clear_screen"`
	} `toml:"ui"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "wispr")
	}

	cfg := &Config{}

	cfg.Backend.BaseURL = DefaultBaseURL
	cfg.Backend.UploadFilename = DefaultUploadFilename

	// Mirrors the browser capture constraints: mono, low rate, cleanup on.
	cfg.Audio.SampleRate = 8000
	cfg.Audio.Channels = 1
	cfg.Audio.FrameMS = 20
	cfg.Audio.EchoCancellation = true
	cfg.Audio.NoiseSuppression = true
	cfg.Audio.AutoGain = true

	cfg.VAD.AutoStop = false
	cfg.VAD.SilenceMS = 1500
	cfg.VAD.Aggressiveness = 2

	cfg.Poll.IntervalMS = defaultPollInterval
	cfg.Poll.RefreshDelayMS = defaultRefreshDelay

	cfg.Hook.Prefix = ""
	cfg.Hook.QueueSize = 16
	cfg.Hook.TimeoutSec = 5
	cfg.Hook.Env = map[string]string{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "wispr.log")
	cfg.Paths.SocketPath = filepath.Join(stateDir, "wispr.sock")
	cfg.Paths.PidPath = filepath.Join(stateDir, "wispr.pid")

	cfg.UI.StatusTail = defaultStatusTail
	cfg.UI.ShowRaw = true

	cfg.Metrics.Enabled = false
	cfg.Metrics.Addr = "127.0.0.1:9318"

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := Save(cfg, path); err != nil {
				return nil, err
			}
			cfg.Paths.ConfigPath = path
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate rejects values the client cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.base_url must be set")
	}
	if c.Poll.IntervalMS <= 0 {
		return fmt.Errorf("poll.interval_ms must be positive (got %d)", c.Poll.IntervalMS)
	}
	if c.Poll.RefreshDelayMS < 0 {
		return fmt.Errorf("poll.refresh_delay_ms must not be negative (got %d)", c.Poll.RefreshDelayMS)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive (got %d)", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 {
		return errors.New("only mono input supported; set audio.channels = 1")
	}
	return nil
}

// PollInterval is the steady history refresh period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMS) * time.Millisecond
}

// RefreshDelay is the pause before the refresh that follows a successful upload.
func (c *Config) RefreshDelay() time.Duration {
	return time.Duration(c.Poll.RefreshDelayMS) * time.Millisecond
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath), filepath.Dir(cfg.Paths.SocketPath)} {
		if p == "" || p == "." {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WISPR_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("WISPR_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("WISPR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WISPR_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WISPR_POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Poll.IntervalMS = ms
		}
	}
	if v := os.Getenv("WISPR_AUTO_STOP"); v != "" {
		cfg.VAD.AutoStop = v != "0" && strings.ToLower(v) != "false"
	}
}
