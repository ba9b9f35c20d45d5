package service

import (
	"io"
	"strings"
	"text/template"
)

const systemdTemplate = `[Unit]
Description=wispr voice transcription session
After=network-online.target sound.target

[Service]
Type=simple
ExecStart={{quote .Binary}} serve --config {{quote .Config}}
Restart=on-failure
RestartSec=3
{{- range $k, $v := .Env }}
Environment={{quote (printf "%s=%s" $k $v)}}
{{- end }}

[Install]
WantedBy=default.target
`

// UnitName maps a reverse-DNS label to a systemd unit name: com.wispr.agent
// becomes wispr.service.
func UnitName(label string) string {
	parts := strings.Split(label, ".")
	if len(parts) < 2 {
		return label + ".service"
	}
	return parts[len(parts)-2] + ".service"
}

// RenderUnit writes a systemd user unit.
func RenderUnit(w io.Writer, params Params) error {
	tpl := template.Must(template.New("systemd").Funcs(template.FuncMap{
		"quote": systemdQuote,
	}).Parse(systemdTemplate))
	return tpl.Execute(w, params)
}

func systemdQuote(s string) string {
	if !strings.ContainsAny(s, " \t\"\\") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
