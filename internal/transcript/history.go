package transcript

import (
	"slices"
	"sync"
)

// History is the client-held list of entries. It always holds either the
// placeholder alone or the server's list exactly as returned.
type History struct {
	mu      sync.Mutex
	entries []Entry
}

// NewHistory returns a history showing the placeholder.
func NewHistory() *History {
	return &History{entries: []Entry{Placeholder()}}
}

// Apply replaces the displayed list with a server snapshot and reports whether
// anything visible changed. Overlapping callers race; the last one wins.
func (h *History) Apply(remote []Entry) bool {
	next := []Entry{Placeholder()}
	if len(remote) > 0 {
		next = slices.Clone(remote)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if slices.Equal(h.entries, next) {
		return false
	}
	h.entries = next
	return true
}

// Entries returns a copy of the displayed list.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.entries)
}

// HasReal reports whether the list holds server entries rather than the placeholder.
func (h *History) HasReal() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries) > 0 && !h.entries[0].IsPlaceholder()
}

// Len returns the number of displayed entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
