package transcription

import (
	"fmt"

	"github.com/reelscribe/reelscribe/internal/recognizer"
)

// Style is a named text-transformation profile applied to raw transcribed text
type Style string

const (
	StyleVerbatim  Style = "verbatim"
	StyleClean     Style = "clean"
	StyleCondensed Style = "condensed"
)

// ParseStyle validates a style name, defaulting to clean when empty
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case "":
		return StyleClean, nil
	case StyleVerbatim, StyleClean, StyleCondensed:
		return Style(s), nil
	default:
		return "", fmt.Errorf("unknown style: %q", s)
	}
}

// Options are the per-request transcription settings, consumed unmodified
// end-to-end
type Options struct {
	Style             Style `json:"style"`
	IncludeTimestamps bool  `json:"include_timestamps"`
}

// NoSpeechDescriptor marks a legitimate empty-transcript outcome. It is
// deliberately distinct from recognizer invocation-failure kinds: "the
// recognizer heard silence" and "the recognizer broke" must never be conflated.
const NoSpeechDescriptor = "no_speech_detected"

// Normalized is the final transcription produced by Normalize. Text is never
// absent; the empty string is a valid terminal state. The value is immutable
// once created.
type Normalized struct {
	Text              string                   `json:"text"`
	Language          string                   `json:"language"`
	Style             Style                    `json:"style"`
	IncludeTimestamps bool                     `json:"include_timestamps"`
	Segments          []recognizer.WordSegment `json:"segments,omitempty"`
	AvgConfidence     *float64                 `json:"avg_confidence,omitempty"`
	Error             string                   `json:"error,omitempty"`
}
