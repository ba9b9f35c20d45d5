package control

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"wispr/internal/config"
	"wispr/internal/service"

	"github.com/spf13/cobra"
)

func newServiceInstallCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the user service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return err
			}
			envPairs, _ := cmd.Flags().GetStringArray("env")
			env, err := parseEnvPairs(envPairs)
			if err != nil {
				return err
			}
			params := service.Params{
				Label:  service.Label,
				Binary: exe,
				Config: cfg.Paths.ConfigPath,
				Log:    cfg.Paths.LogPath,
				Env:    env,
			}
			path, err := service.Write(params)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if runtime.GOOS == "darwin" {
				fmt.Fprintf(out, "launchd plist written: %s\n", path)
				fmt.Fprintln(out, "Load:   launchctl load -w", path)
				fmt.Fprintf(out, "Start:  launchctl kickstart gui/$(id -u)/%s\n", params.Label)
				fmt.Fprintf(out, "Stop:   launchctl bootout gui/$(id -u)/%s\n", params.Label)
				return nil
			}
			unit := service.UnitName(params.Label)
			fmt.Fprintf(out, "systemd unit written: %s\n", path)
			fmt.Fprintln(out, "Reload: systemctl --user daemon-reload")
			fmt.Fprintf(out, "Enable: systemctl --user enable --now %s\n", unit)
			fmt.Fprintf(out, "Stop:   systemctl --user stop %s\n", unit)
			return nil
		},
	}
	cmd.Flags().StringArray("env", nil, "Env to set in the service definition (KEY=VAL)")
	return cmd
}

func parseEnvPairs(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		parts := strings.SplitN(p, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("bad env %q, want KEY=VAL", p)
		}
		env[parts[0]] = parts[1]
	}
	return env, nil
}

func newServiceUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the user service definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := service.Remove(service.Label)
			if err != nil {
				return err
			}
			if runtime.GOOS == "darwin" {
				cmd.Printf("removed %s (if present); unload manually with: launchctl bootout gui/$(id -u) %s\n", path, path)
				return nil
			}
			cmd.Printf("removed %s (if present); then run: systemctl --user daemon-reload\n", path)
			return nil
		},
	}
}

func newServiceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the service definition path and whether it exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, ok := service.Status(service.Label)
			cmd.Printf("definition: %s\n", path)
			if ok {
				cmd.Println("status: present")
			} else {
				cmd.Println("status: missing (install via: wispr service install)")
			}
			return nil
		},
	}
}
