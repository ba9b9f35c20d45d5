package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"wispr/internal/capture"
	"wispr/internal/config"
	"wispr/internal/logging"
	"wispr/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRunCmd runs the interactive session in the terminal.
func NewRunCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record and browse transcriptions in this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyRuntimeFlags(cmd); err != nil {
				return err
			}
			cfg, logger, err := load(*cfgPath)
			if err != nil {
				return err
			}
			s := session.New(cfg, logger, capture.NewDevice(logger), session.WithOutput(cmd.OutOrStdout()))
			return s.Run(cmd.Context(), cmd.InOrStdin())
		},
	}
	addRuntimeFlags(cmd)
	return cmd
}

// NewStartCmd starts the headless session in the background.
func NewStartCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the background wispr session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := ensureNotRunning(cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.Paths.PidPath), 0o755); err != nil {
				return err
			}
			self, err := os.Executable()
			if err != nil {
				return err
			}
			child := exec.Command(self, "serve", "--config", cfg.Paths.ConfigPath)
			child.Env = append(os.Environ(), runtimeEnv(cmd)...)
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
			if err := child.Start(); err != nil {
				return err
			}
			// Wait a moment and confirm pid file appears.
			for waited := 0; waited < 20; waited++ {
				if _, err := os.Stat(cfg.Paths.PidPath); err == nil {
					break
				}
				time.Sleep(100 * time.Millisecond)
			}
			cmd.Printf("wispr started (pid %d)\n", child.Process.Pid)
			return nil
		},
	}
	addRuntimeFlags(cmd)
	return cmd
}

// NewServeCmd runs the headless session in the foreground (internal).
func NewServeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "serve",
		Short:  "Run the headless wispr session (internal)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyRuntimeFlags(cmd); err != nil {
				return err
			}
			cfg, logger, err := load(*cfgPath)
			if err != nil {
				return err
			}
			return serve(cmd, cfg, logger)
		},
	}
	addRuntimeFlags(cmd)
	return cmd
}

func serve(cmd *cobra.Command, cfg *config.Config, logger *logrus.Logger) error {
	if err := os.WriteFile(cfg.Paths.PidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(cfg.Paths.PidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("remove pid file: %v", err)
		}
	}()
	logger.Infof("serving on %s (backend %s)", cfg.Paths.SocketPath, cfg.Backend.BaseURL)
	s := session.New(cfg, logger, capture.NewDevice(logger), session.Headless())
	return s.Run(cmd.Context(), nil)
}

// NewStopCmd stops the background session.
func NewStopCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background wispr session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			pid, err := readPID(cfg.Paths.PidPath)
			if err != nil {
				return fmt.Errorf("not running: %w", err)
			}
			proc, err := os.FindProcess(pid)
			if err != nil {
				return err
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				return err
			}
			cmd.Println("stop signal sent")
			return nil
		},
	}
}

// NewRestartCmd stops then starts.
func NewRestartCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the background wispr session",
		RunE: func(cmd *cobra.Command, args []string) error {
			stopCmd := NewStopCmd(cfgPath)
			stopCmd.SetOut(cmd.OutOrStdout())
			_ = stopCmd.RunE(stopCmd, args) // ignore error if not running

			if err := waitForShutdown(*cfgPath, 5*time.Second); err != nil {
				return err
			}

			startCmd := NewStartCmd(cfgPath)
			startCmd.SetOut(cmd.OutOrStdout())
			for _, name := range []string{"metrics-addr", "auto-stop"} {
				if f := cmd.Flag(name); f != nil && f.Changed {
					_ = startCmd.Flags().Set(name, f.Value.String())
				}
			}
			return startCmd.RunE(startCmd, args)
		},
	}
	addRuntimeFlags(cmd)
	return cmd
}

func addRuntimeFlags(cmd *cobra.Command) {
	cmd.Flags().String("metrics-addr", "", "enable metrics at address (e.g., 127.0.0.1:9318) for this run")
	cmd.Flags().Bool("auto-stop", false, "stop recording after trailing silence for this run")
}

// runtimeEnv turns changed runtime flags into env overrides for a child.
func runtimeEnv(cmd *cobra.Command) []string {
	var env []string
	if addr := cmd.Flag("metrics-addr").Value.String(); addr != "" {
		env = append(env, "WISPR_METRICS_ADDR="+addr)
	}
	if f := cmd.Flag("auto-stop"); f.Changed {
		env = append(env, "WISPR_AUTO_STOP="+f.Value.String())
	}
	return env
}

func applyRuntimeFlags(cmd *cobra.Command) error {
	for _, kv := range runtimeEnv(cmd) {
		k, v, _ := strings.Cut(kv, "=")
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

func load(cfgPath string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.Configure(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func ensureNotRunning(cfg *config.Config) error {
	pid, err := readPID(cfg.Paths.PidPath)
	if err != nil {
		return nil
	}
	// Check if process alive.
	proc, err := os.FindProcess(pid)
	if err == nil {
		if err := proc.Signal(syscall.Signal(0)); err == nil {
			return fmt.Errorf("already running with pid %d", pid)
		}
	}
	return nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, err
	}
	return pid, nil
}

func waitForShutdown(cfgPath string, timeout time.Duration) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		pid, err := readPID(cfg.Paths.PidPath)
		if err != nil {
			return nil // pid file gone
		}
		proc, _ := os.FindProcess(pid)
		if proc != nil {
			if err := proc.Signal(syscall.Signal(0)); err != nil {
				_ = os.Remove(cfg.Paths.PidPath)
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("restart: session did not stop within %s", timeout)
}
