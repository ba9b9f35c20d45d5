package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV wraps clip in a 16-bit PCM WAV container. When keepPath is set the
// file is written there and left in place; otherwise a temp file is used.
func EncodeWAV(clip Clip, keepPath string) ([]byte, error) {
	if clip.SampleRate <= 0 {
		return nil, errors.New("encode wav: missing sample rate")
	}
	var (
		f   *os.File
		err error
	)
	if keepPath != "" {
		if err := os.MkdirAll(filepath.Dir(keepPath), 0o755); err != nil {
			return nil, err
		}
		f, err = os.Create(keepPath)
	} else {
		f, err = os.CreateTemp("", "wispr-*.wav")
	}
	if err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	path := f.Name()
	if keepPath == "" {
		defer func() { _ = os.Remove(path) }()
	}

	data := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		data[i] = int(s)
	}
	enc := wav.NewEncoder(f, clip.SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// DecodeWAV reads a mono 16-bit WAV file into a clip.
func DecodeWAV(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Clip{}, fmt.Errorf("%s: not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format.NumChannels != 1 {
		return Clip{}, fmt.Errorf("%s: expected mono, got %d channels", path, buf.Format.NumChannels)
	}
	out := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		out[i] = int16(s)
	}
	return Clip{Samples: out, SampleRate: buf.Format.SampleRate}, nil
}
