// Package text normalizes dialogue lines before synthesis. OCR output carries
// typographic punctuation, soft hyphens and ragged whitespace that confuse the
// speech engine; sanitizing is cheap and keeps the engine input predictable.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

const whitespaceRegexPattern = `\s+`

// Characters the engine has no pronunciation for.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsisChar = "…"
	softHyphen   = "­"
)

// Sanitizer normalizes raw dialogue text for the speech engine.
type Sanitizer struct {
	// Precompiled regex patterns for performance.
	whitespacePattern *regexp.Regexp
	// Efficient replacer for typographic punctuation.
	punctuationReplacer *strings.Replacer
}

// NewSanitizer creates a new sanitizer with compiled patterns and replacers.
func NewSanitizer() *Sanitizer {
	punctuation := []string{
		emDash, ", ",
		enDash, ", ",
		figureDash, "-",
		ellipsisChar, "...",
		softHyphen, "",
		"“", `"`,
		"”", `"`,
		"‘", "'",
		"’", "'",
	}

	return &Sanitizer{
		whitespacePattern:   regexp.MustCompile(whitespaceRegexPattern),
		punctuationReplacer: strings.NewReplacer(punctuation...),
	}
}

// Sanitize normalizes a dialogue line. The cheaper transformations run first.
func (s *Sanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	normalized := s.punctuationReplacer.Replace(text)
	normalized = stripControlRunes(normalized)
	normalized = s.whitespacePattern.ReplaceAllString(normalized, " ")

	return strings.TrimSpace(normalized)
}

// stripControlRunes drops non-printable runes that OCR occasionally emits,
// keeping plain spaces so word boundaries survive.
func stripControlRunes(text string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\t' {
			return r
		}

		if unicode.IsControl(r) {
			return -1
		}

		return r
	}, text)
}
