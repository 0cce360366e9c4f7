package transcription

import (
	"testing"

	"github.com/reelscribe/reelscribe/internal/recognizer"
)

func TestAlignTimestamps(t *testing.T) {
	segments := []recognizer.WordSegment{
		{Word: "first", Start: 2.0, End: 2.4},
		{Word: "sentence", Start: 2.5, End: 3.0},
		{Word: "second", Start: 65.0, End: 65.4},
		{Word: "thought", Start: 65.5, End: 66.0},
	}

	got := AlignTimestamps("First sentence. Second thought.", segments)
	want := "[00:02] First sentence. [01:05] Second thought."
	if got != want {
		t.Errorf("AlignTimestamps = %q, want %q", got, want)
	}
}

func TestAlignTimestampsMonotonicCursor(t *testing.T) {
	// Both sentences start with "the"; the second match must not reuse the
	// first segment.
	segments := []recognizer.WordSegment{
		{Word: "the", Start: 0.0},
		{Word: "start", Start: 0.5},
		{Word: "the", Start: 70.0},
		{Word: "end", Start: 70.5},
	}

	got := AlignTimestamps("The start. The end.", segments)
	want := "[00:00] The start. [01:10] The end."
	if got != want {
		t.Errorf("AlignTimestamps = %q, want %q", got, want)
	}
}

func TestAlignTimestampsUnmatchedSentence(t *testing.T) {
	segments := []recognizer.WordSegment{
		{Word: "known", Start: 3.0},
	}

	got := AlignTimestamps("Known words. Mystery sentence.", segments)
	want := "[00:03] Known words. Mystery sentence."
	if got != want {
		t.Errorf("AlignTimestamps = %q, want %q", got, want)
	}
}

func TestAlignTimestampsPassthrough(t *testing.T) {
	segments := []recognizer.WordSegment{{Word: "word", Start: 1.0}}

	tests := []struct {
		name     string
		text     string
		segments []recognizer.WordSegment
	}{
		{name: "empty text", text: "", segments: segments},
		{name: "whitespace text", text: "   ", segments: segments},
		{name: "no segments", text: "Some text.", segments: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AlignTimestamps(tt.text, tt.segments); got != tt.text {
				t.Errorf("expected input returned unchanged, got %q", got)
			}
		})
	}
}
