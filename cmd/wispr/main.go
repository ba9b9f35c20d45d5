package main

import (
	"fmt"
	"os"

	"wispr/internal/control"
	"wispr/internal/daemon"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "wispr",
		Short: "wispr: record, transcribe and browse voice notes",
		Long: `wispr records from your microphone, uploads each take to the transcription
backend (default http://localhost:5001) and keeps the history in view.

Key commands:
  run                       Interactive session (Enter records, c clears, q quits)
  start|stop|restart        Background session for hotkey bindings
  toggle                    Start/stop recording in the background session
  status [--json]           Session state + history
  history|clear|store       Backend history
  transcribe <file>         Upload an audio file
  mic list|set              Select microphone
  doctor|health|tail-log    Diagnostics
  service install|uninstall|status   launchd (macOS) / systemd (Linux)`,
		Example: `  wispr run
  wispr start --metrics-addr 127.0.0.1:9318
  wispr toggle
  wispr transcribe memo.wav
  wispr mic set --index 1
  wispr service install --env WISPR_BASE_URL=http://localhost:5001`,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}

	root.Version = version
	root.SetVersionTemplate("wispr v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/wispr/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(daemon.NewRunCmd(cfgPath))
	root.AddCommand(daemon.NewStartCmd(cfgPath))
	root.AddCommand(daemon.NewStopCmd(cfgPath))
	root.AddCommand(daemon.NewRestartCmd(cfgPath))
	root.AddCommand(control.NewStatusCmd(cfgPath))
	root.AddCommand(control.NewToggleCmd(cfgPath))
	root.AddCommand(control.NewHistoryCmd(cfgPath))
	root.AddCommand(control.NewClearCmd(cfgPath))
	root.AddCommand(control.NewTranscribeCmd(cfgPath))
	root.AddCommand(control.NewStoreCmd(cfgPath))
	root.AddCommand(control.NewMicCmd(cfgPath))
	root.AddCommand(control.NewHealthCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))
	root.AddCommand(control.NewTestHookCmd(cfgPath))
	root.AddCommand(control.NewServiceCmd(cfgPath))

	// Hidden internal serve command used by start and the service definitions.
	root.AddCommand(daemon.NewServeCmd(cfgPath))

	applyColorHelp(root)

	return root.Execute()
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			_ = cmd.Usage()
			return
		}
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%swispr%s: voice notes via your transcription backend %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sRecords from the mic, uploads each take, and keeps the history fresh.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  wispr [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  run                         interactive session in this terminal")
		writeln("  start|stop|restart          background session lifecycle")
		writeln("  toggle                      start/stop recording (bind to a hotkey)")
		writeln("  status [--json]             state, last error and history")
		writeln("  history [--json]            backend history")
		writeln("  clear                       wipe backend history")
		writeln("  transcribe <file>           upload an audio file")
		writeln("  store <raw> [cleaned]       add text captured elsewhere")
		writeln("  mic list|set                select input device (alias: microphone, mics)")
		writeln("  doctor                      check backend/mic/hook/portaudio")
		writeln("  service install|uninstall|status  launchd (macOS) or systemd user unit")
		writeln("  health                      backend liveness")
		writeln("  tail-log                    show last log lines")
		writeln("  test-hook \"text\"            invoke hook manually")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  --metrics-addr <addr>   enable /metrics (Prometheus)")
		writeln("  --auto-stop             stop recording after trailing silence")
		writeln("  -c, --config <path>     config file (default ~/.config/wispr/config.toml)")
		writeln("  Env: WISPR_BASE_URL=http://host:port, WISPR_METRICS_ADDR=host:port,")
		writeln("       WISPR_LOG_LEVEL=debug, WISPR_LOG_FORMAT=json,")
		writeln("       WISPR_POLL_INTERVAL_MS=2000, WISPR_AUTO_STOP=1")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  wispr run")
		writeln("  wispr start --metrics-addr 127.0.0.1:9318")
		writeln("  wispr toggle")
		writeln("  wispr mic list")
		writeln("  wispr mic set --index 1")
		writeln("  wispr transcribe memo.wav")
		writeln("  wispr service install --env WISPR_BASE_URL=http://localhost:5001")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
