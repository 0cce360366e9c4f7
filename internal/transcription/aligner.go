package transcription

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/reelscribe/reelscribe/internal/recognizer"
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)
var nonWordRe = regexp.MustCompile(`[^\pL\pN']+`)

// AlignTimestamps interleaves coarse per-sentence timestamps derived from
// word-level segment timing. Sentences are matched against segments in order,
// and a matched segment's floor-seconds start is prepended as "[MM:SS]".
// Matched segments are consumed: earlier segments are never revisited, which
// keeps timestamps monotonic even when word matching is imperfect. The
// matching is a heuristic; repeated common words can cause timestamp drift.
//
// AlignTimestamps is pure and returns its input unchanged on any internal
// failure.
func AlignTimestamps(text string, segments []recognizer.WordSegment) (aligned string) {
	aligned = text
	defer func() {
		if r := recover(); r != nil {
			aligned = text
		}
	}()

	if strings.TrimSpace(text) == "" || len(segments) == 0 {
		return text
	}

	sorted := sortedSegments(segments)
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return text
	}

	cursor := 0
	out := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		marker := ""
		if token := firstToken(sentence); token != "" {
			for j := cursor; j < len(sorted); j++ {
				word := strings.ToLower(strings.TrimSpace(sorted[j].Word))
				if word != "" && strings.Contains(token, word) {
					marker = formatMarker(sorted[j].Start)
					cursor = j + 1
					break
				}
			}
		}

		if marker != "" {
			out = append(out, marker+" "+sentence)
		} else {
			out = append(out, sentence)
		}
	}

	return strings.Join(out, " ")
}

// firstToken returns the lowercased first word of a sentence with punctuation
// stripped
func firstToken(sentence string) string {
	fields := strings.Fields(sentence)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(nonWordRe.ReplaceAllString(fields[0], ""))
}

func formatMarker(startSeconds float64) string {
	total := int(startSeconds)
	return fmt.Sprintf("[%02d:%02d]", total/60, total%60)
}
