// Package service writes per-user service definitions that run the headless
// session: a launchd agent on macOS and a systemd user unit on Linux.
package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

// Label names the service on every platform.
const Label = "com.wispr.agent"

const launchdTemplate = `<?xml version='1.0' encoding='UTF-8'?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
  <key>Label</key><string>{{.Label}}</string>
  <key>ProgramArguments</key>
  <array>
    <string>{{.Binary}}</string>
    <string>serve</string>
    <string>--config</string>
    <string>{{.Config}}</string>
  </array>
  <key>RunAtLoad</key><true/>
  <key>KeepAlive</key><dict><key>SuccessfulExit</key><false/></dict>
  <key>StandardOutPath</key><string>{{.Log}}</string>
  <key>StandardErrorPath</key><string>{{.Log}}</string>
  {{- if .Env }}
  <key>EnvironmentVariables</key>
  <dict>
    {{- range $k, $v := .Env }}
    <key>{{$k}}</key><string>{{$v}}</string>
    {{- end }}
  </dict>
  {{- end }}
</dict>
</plist>
`

// Params describes the service to install.
type Params struct {
	Label  string
	Binary string
	Config string
	Log    string
	Env    map[string]string
}

// Path returns where the service definition for label lives on this platform.
func Path(label string) string {
	home := os.Getenv("HOME")
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "LaunchAgents", fmt.Sprintf("%s.plist", label))
	}
	return filepath.Join(home, ".config", "systemd", "user", UnitName(label))
}

// Write renders the platform's service definition and returns its path.
func Write(params Params) (string, error) {
	path := Path(params.Label)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if runtime.GOOS == "darwin" {
		err = RenderPlist(f, params)
	} else {
		err = RenderUnit(f, params)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// RenderPlist writes a user-level launchd plist.
func RenderPlist(w io.Writer, params Params) error {
	tpl := template.Must(template.New("launchd").Parse(launchdTemplate))
	return tpl.Execute(w, params)
}
