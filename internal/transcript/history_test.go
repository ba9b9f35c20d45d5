package transcript

import (
	"reflect"
	"testing"
)

func TestNewHistoryShowsPlaceholder(t *testing.T) {
	h := NewHistory()
	got := h.Entries()
	if len(got) != 1 || got[0] != Placeholder() {
		t.Fatalf("expected placeholder only, got %+v", got)
	}
	if h.HasReal() {
		t.Fatalf("placeholder should not count as real history")
	}
}

func TestPlaceholderText(t *testing.T) {
	p := Placeholder()
	if p.Source != SourceDemo {
		t.Fatalf("source %q", p.Source)
	}
	if p.RawText != "Click the microphone to start real transcription with Whisper" {
		t.Fatalf("raw %q", p.RawText)
	}
	if p.CleanedText != "Click the microphone to start real transcription with Whisper." {
		t.Fatalf("cleaned %q", p.CleanedText)
	}
}

func TestApplyEmptyInstallsPlaceholder(t *testing.T) {
	h := NewHistory()
	h.Apply([]Entry{{ID: "9", RawText: "x", Source: SourceWeb}})
	if !h.Apply(nil) {
		t.Fatalf("expected change back to placeholder")
	}
	got := h.Entries()
	if len(got) != 1 || !got[0].IsPlaceholder() {
		t.Fatalf("expected single demo entry, got %+v", got)
	}
}

func TestApplyNonEmptyIsVerbatim(t *testing.T) {
	remote := []Entry{
		{ID: "5", Timestamp: "3:00 PM", RawText: "hello world", CleanedText: "Hello world.", Source: SourceWeb},
	}
	h := NewHistory()
	if !h.Apply(remote) {
		t.Fatalf("expected change")
	}
	if got := h.Entries(); !reflect.DeepEqual(got, remote) {
		t.Fatalf("got %+v want %+v", got, remote)
	}
	if !h.HasReal() {
		t.Fatalf("expected real history")
	}
}

func TestApplyKeepsServerOrderAndDuplicates(t *testing.T) {
	remote := []Entry{
		{ID: "2", RawText: "b", Source: SourceVoiceAssistant},
		{ID: "1", RawText: "a", Source: SourceWeb},
		{ID: "2", RawText: "b", Source: SourceVoiceAssistant},
		{ID: "3", RawText: "c"},
	}
	h := NewHistory()
	h.Apply(remote)
	if got := h.Entries(); !reflect.DeepEqual(got, remote) {
		t.Fatalf("order or content changed: %+v", got)
	}
}

func TestApplyIdenticalIsStable(t *testing.T) {
	remote := []Entry{{ID: "5", RawText: "hello world", Source: SourceWeb}}
	h := NewHistory()
	h.Apply(remote)
	for i := 0; i < 3; i++ {
		if h.Apply([]Entry{{ID: "5", RawText: "hello world", Source: SourceWeb}}) {
			t.Fatalf("identical snapshot %d reported a change", i)
		}
	}
	if h.Apply(nil); h.Apply(nil) {
		t.Fatalf("repeated empty snapshots should not change")
	}
}

func TestApplyCopiesInput(t *testing.T) {
	remote := []Entry{{ID: "1", RawText: "a"}}
	h := NewHistory()
	h.Apply(remote)
	remote[0].RawText = "mutated"
	if h.Entries()[0].RawText != "a" {
		t.Fatalf("history aliases caller slice")
	}
}
