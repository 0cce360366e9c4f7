package transcription

import (
	"regexp"
	"strings"
	"unicode"
)

// Style transforms are data-driven rule tables rather than inline logic so the
// rule sets can be unit-tested and extended without touching control flow.

type rewriteRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Filler tokens stripped by the clean style. Multi-word phrases come first so
// "you know" is removed as a unit before "you" could ever be touched.
var fillerRules = []rewriteRule{
	{regexp.MustCompile(`(?i)\byou know\b`), ""},
	{regexp.MustCompile(`(?i)\bi mean\b`), ""},
	{regexp.MustCompile(`(?i)\bum\b`), ""},
	{regexp.MustCompile(`(?i)\buh\b`), ""},
	{regexp.MustCompile(`(?i)\blike\b`), ""},
	{regexp.MustCompile(`(?i)\bso\b`), ""},
}

// Informal contractions expanded by the clean style
var contractionRules = []rewriteRule{
	{regexp.MustCompile(`(?i)\bgonna\b`), "going to"},
	{regexp.MustCompile(`(?i)\bwanna\b`), "want to"},
	{regexp.MustCompile(`(?i)\bgotta\b`), "got to"},
}

// Hedge phrases stripped by the condensed style
var hedgeRules = []rewriteRule{
	{regexp.MustCompile(`(?i)\bi think that\b`), ""},
	{regexp.MustCompile(`(?i)\bas i said\b`), ""},
	{regexp.MustCompile(`(?i)\bas i mentioned\b`), ""},
	{regexp.MustCompile(`(?i)\bbasically\b`), ""},
	{regexp.MustCompile(`(?i)\bactually\b`), ""},
	{regexp.MustCompile(`(?i)\bessentially\b`), ""},
}

// Verbose constructions simplified by the condensed style
var verboseRules = []rewriteRule{
	{regexp.MustCompile(`(?i)\bdue to the fact that\b`), "because"},
	{regexp.MustCompile(`(?i)\bat this point in time\b`), "now"},
	{regexp.MustCompile(`(?i)\bin order to\b`), "to"},
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func applyRules(text string, rules []rewriteRule) string {
	for _, rule := range rules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}

// ApplyStyle transforms text according to the requested style. Verbatim
// returns the input untouched.
func ApplyStyle(text string, style Style) string {
	switch style {
	case StyleClean:
		return CleanText(text)
	case StyleCondensed:
		return CondenseText(text)
	default:
		return text
	}
}

// CleanText strips filler tokens, expands informal contractions, collapses
// immediately-repeated words and whitespace, and capitalizes the first letter.
// CleanText is idempotent.
func CleanText(text string) string {
	text = applyRules(text, fillerRules)
	text = applyRules(text, contractionRules)
	text = collapseRepeatedWords(text)
	text = collapseWhitespace(text)
	return capitalizeFirst(text)
}

// CondenseText applies the clean transform, then strips hedge phrases and
// simplifies verbose constructions. The result is never longer than the clean
// form.
func CondenseText(text string) string {
	text = CleanText(text)
	text = applyRules(text, hedgeRules)
	text = applyRules(text, verboseRules)
	return collapseWhitespace(text)
}

// collapseRepeatedWords removes immediately-repeated words, case-insensitively.
// Go's regexp has no backreferences, so this walks tokens instead.
func collapseRepeatedWords(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return text
	}
	out := fields[:1]
	for _, word := range fields[1:] {
		if strings.EqualFold(word, out[len(out)-1]) {
			continue
		}
		out = append(out, word)
	}
	return strings.Join(out, " ")
}

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

func capitalizeFirst(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
