package audio

import (
	"fmt"
	"os"
)

// Audio format constants for the recognizer-facing WAV intermediate. These
// are fixed, never negotiated.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
)

// VideoAsset is a local video file awaiting extraction
type VideoAsset struct {
	Path string
	Size int64
}

// NewVideoAsset stats path and rejects empty files; extraction is never
// attempted against a zero-byte input.
func NewVideoAsset(path string) (*VideoAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("video file not accessible: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("video file is empty: %s", path)
	}
	return &VideoAsset{Path: path, Size: info.Size()}, nil
}

// Asset is an extracted WAV file: 16kHz mono 16-bit signed PCM. The extractor
// owns the file until the caller explicitly cleans it up; it may be retained
// after the pipeline for diagnostics.
type Asset struct {
	Path       string
	SampleRate int
	Channels   int
	Size       int64
}

// Remove deletes the underlying WAV file
func (a *Asset) Remove() error {
	return os.Remove(a.Path)
}
