package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/reelscribe/reelscribe/internal/transcription"
)

// Format is a textual output format for a finished transcription
type Format string

const (
	FormatPlain Format = "plain"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatSRT   Format = "srt"
)

// ParseFormat validates a format name, defaulting to plain when empty
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "":
		return FormatPlain, nil
	case FormatPlain, FormatJSON, FormatCSV, FormatSRT:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format: %q", s)
	}
}

// Bundle is everything the renderer needs for one transcription
type Bundle struct {
	URL           string
	Transcription transcription.Normalized
	Caption       string
	Timestamp     time.Time
}

// Output is a rendered transcription
type Output struct {
	Text   string `json:"text"`
	Format Format `json:"format"`
}

// jsonDocument is the wire shape of the json format
type jsonDocument struct {
	URL           string       `json:"url"`
	Transcription string       `json:"transcription"`
	Caption       string       `json:"caption"`
	Metadata      jsonMetadata `json:"metadata"`
}

type jsonMetadata struct {
	Timestamp  time.Time           `json:"timestamp"`
	Language   string              `json:"language"`
	Style      transcription.Style `json:"style"`
	Timestamps bool                `json:"timestamps"`
}

// Render serializes a transcription bundle into the requested format.
//
// Before rendering, an empty transcription text is reconstructed from segments
// when segments exist. The normalizer already guarantees this for its own
// output; the shim covers transcription values assembled by other callers.
func Render(bundle Bundle, format Format) (Output, error) {
	text := bundle.Transcription.Text
	if text == "" && len(bundle.Transcription.Segments) > 0 {
		text = transcription.ReconstructFromSegments(bundle.Transcription.Segments)
	}

	switch format {
	case FormatPlain:
		return Output{Text: renderPlain(bundle, text), Format: format}, nil
	case FormatJSON:
		rendered, err := renderJSON(bundle, text)
		if err != nil {
			return Output{}, err
		}
		return Output{Text: rendered, Format: format}, nil
	case FormatCSV:
		return Output{Text: renderCSV(bundle, text), Format: format}, nil
	case FormatSRT:
		return Output{Text: formatAsSRT(text), Format: format}, nil
	default:
		return Output{}, fmt.Errorf("unknown format: %q", format)
	}
}

func renderPlain(bundle Bundle, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n\n", bundle.URL)
	fmt.Fprintf(&b, "Transcription:\n%s\n", text)
	if bundle.Caption != "" {
		fmt.Fprintf(&b, "\nCaption:\n%s\n", bundle.Caption)
	}
	fmt.Fprintf(&b, "\nProcessed on: %s\n", bundle.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Language: %s\n", bundle.Transcription.Language)
	fmt.Fprintf(&b, "Style: %s\n", bundle.Transcription.Style)
	return b.String()
}

func renderJSON(bundle Bundle, text string) (string, error) {
	doc := jsonDocument{
		URL:           bundle.URL,
		Transcription: text,
		Caption:       bundle.Caption,
		Metadata: jsonMetadata{
			Timestamp:  bundle.Timestamp,
			Language:   bundle.Transcription.Language,
			Style:      bundle.Transcription.Style,
			Timestamps: bundle.Transcription.IncludeTimestamps,
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcription: %w", err)
	}
	return string(data), nil
}

// renderCSV emits a single header row and one data row. Every field is
// double-quoted with embedded quotes doubled, regardless of content.
func renderCSV(bundle Bundle, text string) string {
	fields := []string{
		bundle.URL,
		text,
		bundle.Caption,
		bundle.Timestamp.Format(time.RFC3339),
		bundle.Transcription.Language,
		string(bundle.Transcription.Style),
	}
	quoted := make([]string, len(fields))
	for i, field := range fields {
		quoted[i] = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
	}
	return "URL,Transcription,Caption,Timestamp,Language,Style\n" + strings.Join(quoted, ",") + "\n"
}
