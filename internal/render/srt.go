package render

import (
	"fmt"
	"regexp"
	"strings"
)

// cueDurationSecs is the fixed window assigned to each subtitle cue
const cueDurationSecs = 5

var cueSentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// markerRe matches a leading [MM:SS] or [HH:MM:SS] timestamp marker as
// produced by the timestamp aligner
var markerRe = regexp.MustCompile(`^\[(\d{1,3}):(\d{2})(?::(\d{2}))?\]\s*`)

// formatAsSRT renders text as a SubRip subtitle sequence. Sentences split on
// terminal punctuation become cues. A sentence carrying a timestamp marker is
// cued at the marker's time with a fixed-length window and the marker stripped
// from the displayed text; sentences without markers fall back to sequential
// index-based windows starting at zero.
func formatAsSRT(text string) string {
	sentences := cueSentenceRe.FindAllString(text, -1)

	var b strings.Builder
	index := 0
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		start := index * cueDurationSecs
		if match := markerRe.FindStringSubmatch(sentence); match != nil {
			start = parseMarker(match)
			sentence = strings.TrimSpace(markerRe.ReplaceAllString(sentence, ""))
			if sentence == "" {
				continue
			}
		}

		index++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			index,
			formatSRTTime(start),
			formatSRTTime(start+cueDurationSecs),
			sentence)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// parseMarker converts a matched marker into seconds. Two components mean
// [MM:SS], three mean [HH:MM:SS].
func parseMarker(match []string) int {
	first := atoi(match[1])
	second := atoi(match[2])
	if match[3] != "" {
		return first*3600 + second*60 + atoi(match[3])
	}
	return first*60 + second
}

// formatSRTTime renders seconds as the SubRip HH:MM:SS,mmm form, rolling over
// minute and hour boundaries
func formatSRTTime(totalSeconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d,000",
		totalSeconds/3600,
		(totalSeconds%3600)/60,
		totalSeconds%60)
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
