package render

import (
	"strings"
	"testing"
)

func TestFormatAsSRTTwoCues(t *testing.T) {
	got := formatAsSRT("First sentence. Second sentence.")
	want := "1\n00:00:00,000 --> 00:00:05,000\nFirst sentence.\n\n" +
		"2\n00:00:05,000 --> 00:00:10,000\nSecond sentence.\n"

	if got != want {
		t.Errorf("formatAsSRT = %q, want %q", got, want)
	}
}

func TestFormatAsSRTMarkers(t *testing.T) {
	got := formatAsSRT("[00:02] Hello there. [01:15] Back again.")
	want := "1\n00:00:02,000 --> 00:00:07,000\nHello there.\n\n" +
		"2\n00:01:15,000 --> 00:01:20,000\nBack again.\n"

	if got != want {
		t.Errorf("formatAsSRT = %q, want %q", got, want)
	}
}

func TestFormatAsSRTHourMarker(t *testing.T) {
	got := formatAsSRT("[01:02:03] Deep into the recording.")
	want := "1\n01:02:03,000 --> 01:02:08,000\nDeep into the recording.\n"

	if got != want {
		t.Errorf("formatAsSRT = %q, want %q", got, want)
	}
}

func TestFormatAsSRTMinuteRollover(t *testing.T) {
	// The 12th unmarked cue starts at 55s; its end must roll into minutes.
	text := ""
	for i := 0; i < 12; i++ {
		text += "Sentence here. "
	}

	got := formatAsSRT(text)
	if want := "00:00:55,000 --> 00:01:00,000"; !strings.Contains(got, want) {
		t.Errorf("expected window %q in output:\n%s", want, got)
	}
}

func TestFormatAsSRTSkipsEmptyMarkerCue(t *testing.T) {
	// A trailing marker with no sentence behind it must not produce a cue
	got := formatAsSRT("Real sentence. [00:05]")
	want := "1\n00:00:00,000 --> 00:00:05,000\nReal sentence.\n"

	if got != want {
		t.Errorf("formatAsSRT = %q, want %q", got, want)
	}
}
