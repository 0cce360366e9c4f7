package transcription

import "testing"

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips fillers and repeats",
			input: "um so hello hello world",
			want:  "Hello world",
		},
		{
			name:  "expands contractions",
			input: "i'm gonna take it",
			want:  "I'm going to take it",
		},
		{
			name:  "removes filler phrases before tokens",
			input: "you know i mean fine",
			want:  "Fine",
		},
		{
			name:  "collapses case insensitive repeats",
			input: "the The plan",
			want:  "The plan",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanText(tt.input)
			if got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanTextIdempotent(t *testing.T) {
	inputs := []string{
		"um so hello hello world",
		"i'm gonna wanna gotta go",
		"you know this is is fine",
		"Already clean text.",
		"",
	}

	for _, input := range inputs {
		once := CleanText(input)
		twice := CleanText(once)
		if once != twice {
			t.Errorf("CleanText not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestCondenseText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips hedges and simplifies verbose phrases",
			input: "i think that we should basically do it in order to win",
			want:  "we should do it to win",
		},
		{
			name:  "replaces wordy causation",
			input: "we lost due to the fact that it rained",
			want:  "We lost because it rained",
		},
		{
			name:  "no hedges leaves clean form",
			input: "plain sentence here",
			want:  "Plain sentence here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CondenseText(tt.input)
			if got != tt.want {
				t.Errorf("CondenseText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCondensedNeverLongerThanClean(t *testing.T) {
	inputs := []string{
		"i think that we should basically do it in order to win",
		"um so as i said the answer is essentially yes",
		"at this point in time we are gonna start",
		"nothing condensable here",
		"",
	}

	for _, input := range inputs {
		clean := CleanText(input)
		condensed := CondenseText(input)
		if len(condensed) > len(clean) {
			t.Errorf("condensed form longer than clean for %q: clean %d chars, condensed %d chars",
				input, len(clean), len(condensed))
		}
	}
}

func TestApplyStyleVerbatim(t *testing.T) {
	input := "um you know this is is EXACTLY what was said"
	if got := ApplyStyle(input, StyleVerbatim); got != input {
		t.Errorf("verbatim style modified input: got %q", got)
	}
}
