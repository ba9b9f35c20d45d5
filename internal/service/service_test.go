package service

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestRenderPlist(t *testing.T) {
	var b bytes.Buffer
	err := RenderPlist(&b, Params{
		Label:  Label,
		Binary: "/usr/local/bin/wispr",
		Config: "/Users/me/.config/wispr/config.toml",
		Log:    "/tmp/wispr.log",
		Env:    map[string]string{"WISPR_BASE_URL": "http://localhost:5001"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := b.String()
	for _, want := range []string{
		"<string>com.wispr.agent</string>",
		"<string>serve</string>",
		"<key>WISPR_BASE_URL</key><string>http://localhost:5001</string>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("plist missing %q:\n%s", want, out)
		}
	}
}

func TestRenderUnitQuotesPaths(t *testing.T) {
	var b bytes.Buffer
	err := RenderUnit(&b, Params{
		Label:  Label,
		Binary: "/opt/my apps/wispr",
		Config: "/home/me/.config/wispr/config.toml",
		Env:    map[string]string{"WISPR_LOG_LEVEL": "debug"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := b.String()
	if !strings.Contains(out, `ExecStart="/opt/my apps/wispr" serve --config /home/me/.config/wispr/config.toml`) {
		t.Fatalf("bad ExecStart:\n%s", out)
	}
	if !strings.Contains(out, "Environment=WISPR_LOG_LEVEL=debug") {
		t.Fatalf("env missing:\n%s", out)
	}
}

func TestUnitName(t *testing.T) {
	if got := UnitName(Label); got != "wispr.service" {
		t.Fatalf("got %q", got)
	}
	if got := UnitName("solo"); got != "solo.service" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteStatusRemove(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if _, ok := Status(Label); ok {
		t.Fatalf("fresh home should have no service")
	}
	path, err := Write(Params{Label: Label, Binary: "/bin/wispr", Config: "/c.toml", Log: "/l.log"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if got, ok := Status(Label); !ok || got != path {
		t.Fatalf("status=%s,%v want %s", got, ok, path)
	}
	if _, err := Remove(Label); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file still present")
	}
	if _, err := Remove(Label); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
}
