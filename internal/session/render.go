package session

import (
	"fmt"
	"io"
	"strings"

	"wispr/internal/recorder"
	"wispr/internal/transcript"
)

const clearScreen = "\033[H\033[2J"

// View is everything the screen shows.
type View struct {
	State    recorder.State
	Err      string
	Entries  []transcript.Entry
	ShowRaw  bool
	Tail     int
	CanClear bool
	Clear    bool
}

// Render writes one frame. It is a pure function of v.
func Render(w io.Writer, v View) error {
	var b strings.Builder
	if v.Clear {
		b.WriteString(clearScreen)
	}
	b.WriteString("wispr\n\n")

	if v.Err != "" {
		fmt.Fprintf(&b, "  ! %s\n", v.Err)
	}
	switch v.State {
	case recorder.Recording:
		b.WriteString("  ● Recording... press Enter to stop\n")
	case recorder.Processing:
		b.WriteString("  … Processing with Whisper...\n")
	case recorder.Idle:
		if v.Err == "" {
			b.WriteString("  Press Enter to start recording\n")
		}
	}

	b.WriteString("\nTranscriptions\n")
	entries := v.Entries
	if v.Tail > 0 && len(entries) > v.Tail {
		entries = entries[:v.Tail]
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "  [%s] %s", e.Timestamp, e.CleanedText)
		if e.Source != "" {
			fmt.Fprintf(&b, "  (%s)", e.Source)
		}
		b.WriteByte('\n')
		if v.ShowRaw && e.RawText != "" && e.RawText != e.CleanedText {
			fmt.Fprintf(&b, "      raw: %s\n", e.RawText)
		}
	}

	keys := "[enter] record  [r] refresh"
	if v.CanClear {
		keys += "  [c] clear all"
	}
	fmt.Fprintf(&b, "\n%s  [q] quit\n", keys)

	_, err := io.WriteString(w, b.String())
	return err
}
