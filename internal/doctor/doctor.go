package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"wispr/internal/api"
	"wispr/internal/capture"
	"wispr/internal/config"
	"wispr/internal/hook"

	"github.com/sirupsen/logrus"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks.
func Run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) []Result {
	if ctx == nil {
		ctx = context.Background()
	}
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkBackend(ctx, api.New(cfg, logger), cfg.Backend.BaseURL),
		checkMicrophone(),
	}
	if cfg.Hook.Command != "" {
		results = append(results, checkHookExecutable(cfg.Hook.Command))
	}
	return append(results, checkPortAudioPkgConfig())
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkBackend(ctx context.Context, client *api.Client, baseURL string) Result {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	h, err := client.Health(ctx)
	if err != nil {
		return Result{Name: "backend", Pass: false, Detail: fmt.Sprintf("%s: %v", baseURL, err)}
	}
	if !h.WhisperLoaded {
		return Result{Name: "backend", Pass: false, Detail: fmt.Sprintf("%s: %s", baseURL, h.Summary())}
	}
	return Result{Name: "backend", Pass: true, Detail: fmt.Sprintf("%s: %s", baseURL, h.Summary())}
}

func checkMicrophone() Result {
	if err := capture.Probe(); err != nil {
		if errors.Is(err, capture.ErrNoBackend) {
			return Result{Name: "microphone", Pass: false, Detail: "built without capture support (rebuild with -tags portaudio)"}
		}
		return Result{Name: "microphone", Pass: false, Detail: fmt.Sprintf("%v (install with: brew install portaudio)", err)}
	}
	return Result{Name: "microphone", Pass: true, Detail: "ok"}
}

func checkHookExecutable(command string) Result {
	label := "hook.command"
	argv, err := hook.ParseArgs(command)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if len(argv) == 0 {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	path := os.ExpandEnv(argv[0])
	// If contains a path separator, treat as explicit path.
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; set hook.command to an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}

func checkPortAudioPkgConfig() Result {
	pkg, err := exec.LookPath("pkg-config")
	if err != nil {
		return Result{Name: "pkg-config", Pass: false, Detail: "pkg-config not found (brew install pkg-config)"}
	}
	cmd := exec.Command(pkg, "--exists", "portaudio-2.0")
	if err := cmd.Run(); err != nil {
		return Result{Name: "portaudio", Pass: false, Detail: "portaudio-2.0 not found (brew install portaudio)"}
	}
	versionCmd := exec.Command(pkg, "--modversion", "portaudio-2.0")
	if out, err := versionCmd.Output(); err == nil {
		return Result{Name: "portaudio", Pass: true, Detail: strings.TrimSpace(string(out))}
	}
	return Result{Name: "portaudio", Pass: true, Detail: "found via pkg-config"}
}
