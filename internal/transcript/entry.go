// Package transcript holds the transcription record and the displayed history.
package transcript

// Source tags where an entry came from.
type Source string

const (
	SourceDemo           Source = "demo"
	SourceWeb            Source = "web"
	SourceVoiceAssistant Source = "voice_assistant"
)

// Entry is one transcription as reported by the backend.
type Entry struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	RawText     string `json:"rawText"`
	CleanedText string `json:"cleanedText"`
	Source      Source `json:"source,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

const placeholderText = "Click the microphone to start real transcription with Whisper"

// Placeholder is the synthetic entry shown while the server reports no history.
func Placeholder() Entry {
	return Entry{
		ID:          "1",
		Timestamp:   "2:47 PM",
		RawText:     placeholderText,
		CleanedText: placeholderText + ".",
		Source:      SourceDemo,
	}
}

// IsPlaceholder reports whether e is the demo entry.
func (e Entry) IsPlaceholder() bool {
	return e.Source == SourceDemo
}
