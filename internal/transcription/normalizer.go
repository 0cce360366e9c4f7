package transcription

import (
	"math"
	"sort"
	"strings"

	"github.com/reelscribe/reelscribe/internal/recognizer"
)

// Normalize converts a raw recognizer result into a Normalized transcription.
// It never fails: every degenerate input shape collapses to a valid result,
// with an empty text and the NoSpeechDescriptor when nothing was recognized.
//
// Text resolution order, first non-empty wins: the top-level text field, the
// first alternative hypothesis, reconstruction from word segments. Resolution
// is re-applied after the style transform because the transform can
// legitimately empty a string that segments can still recover. This is the
// canonical reconstruction point; the renderer carries one more as a
// compatibility shim for transcriptions assembled by other callers.
func Normalize(result *recognizer.Result, opts Options, language string) Normalized {
	normalized := Normalized{
		Language:          language,
		Style:             opts.Style,
		IncludeTimestamps: opts.IncludeTimestamps,
	}

	if result == nil {
		normalized.Error = NoSpeechDescriptor
		return normalized
	}

	segments := sortedSegments(result.Words)
	normalized.Segments = segments

	text := resolveText(result, segments)
	text = ApplyStyle(text, opts.Style)
	if text == "" && len(segments) > 0 {
		text = ReconstructFromSegments(segments)
	}
	normalized.Text = text

	if len(segments) > 0 {
		avg := averageConfidence(segments)
		normalized.AvgConfidence = &avg
	}

	if normalized.Text == "" {
		normalized.Error = NoSpeechDescriptor
	}

	return normalized
}

// Degraded builds the empty-but-valid transcription used when recognizer
// retries are exhausted. Recognition failure is a degraded-result condition,
// not a pipeline-fatal one; the descriptor preserves the failure kind for
// diagnostics.
func Degraded(kind recognizer.Kind, opts Options, language string) Normalized {
	return Normalized{
		Language:          language,
		Style:             opts.Style,
		IncludeTimestamps: opts.IncludeTimestamps,
		Error:             "recognition_failed:" + string(kind),
	}
}

// ReconstructFromSegments rebuilds a transcript from word segments, sorted
// ascending by start time and joined with single spaces. The output is
// invariant under any permutation of the input list.
func ReconstructFromSegments(segments []recognizer.WordSegment) string {
	sorted := sortedSegments(segments)
	words := make([]string, 0, len(sorted))
	for _, segment := range sorted {
		if word := strings.TrimSpace(segment.Word); word != "" {
			words = append(words, word)
		}
	}
	return strings.Join(words, " ")
}

func resolveText(result *recognizer.Result, segments []recognizer.WordSegment) string {
	if text := strings.TrimSpace(result.Text); text != "" {
		return text
	}
	for _, alt := range result.Alternatives {
		if text := strings.TrimSpace(alt.Text); text != "" {
			return text
		}
	}
	return ReconstructFromSegments(segments)
}

func sortedSegments(segments []recognizer.WordSegment) []recognizer.WordSegment {
	if len(segments) == 0 {
		return nil
	}
	sorted := make([]recognizer.WordSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	return sorted
}

func averageConfidence(segments []recognizer.WordSegment) float64 {
	var sum float64
	for _, segment := range segments {
		sum += segment.Conf
	}
	return math.Round(sum/float64(len(segments))*100) / 100
}
