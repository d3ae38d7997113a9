// Package language normalizes language tags and detects script mismatches
// between a declared language and the script the text is actually written in.
package language

import (
	"regexp"
	"strings"
)

// Auto is the pseudo-code passed to the translation provider when the source
// language should be detected rather than trusted.
const Auto = "auto"

// AgentLang is the canonical language all agent-facing text is normalized
// to and from.
const AgentLang = "en"

// Default is the language a session starts with until the widget declares one.
const Default = "en"

// Supported is the fixed set of languages the system translates between.
var Supported = []string{"en", "hi", "bn", "ta", "es", "ar", "zh"}

// Meta describes display metadata and the script family for a language.
type Meta struct {
	Name       string
	NativeName string
	Script     string
}

// Metadata maps supported language codes to their display and script info.
var Metadata = map[string]Meta{
	"en": {Name: "English", NativeName: "English", Script: "Latin"},
	"hi": {Name: "Hindi", NativeName: "हिंदी", Script: "Devanagari"},
	"bn": {Name: "Bengali", NativeName: "বাংলা", Script: "Bengali"},
	"ta": {Name: "Tamil", NativeName: "தமிழ்", Script: "Tamil"},
	"es": {Name: "Spanish", NativeName: "Español", Script: "Latin"},
	"ar": {Name: "Arabic", NativeName: "العربية", Script: "Arabic"},
	"zh": {Name: "Chinese", NativeName: "中文", Script: "Han"},
}

// aliases maps common variants (full names, ISO variants) to supported codes.
var aliases = map[string]string{
	"chinese": "zh",
	"zh-hans": "zh",
	"zh-hant": "zh",
	"cmn":     "zh",
	"arabic":  "ar",
	"arb":     "ar",
	"spanish": "es",
	"hindi":   "hi",
	"bengali": "bn",
	"tamil":   "ta",
	"english": "en",
}

// scriptPatterns detect whether text contains characters of a script family.
// The Latin pattern is a whole-string match (ASCII plus whitespace and
// punctuation); the others fire on any character in the block.
var scriptPatterns = map[string]*regexp.Regexp{
	"Latin":      regexp.MustCompile(`^[\x00-\x7F\s\p{P}]+$`),
	"Devanagari": regexp.MustCompile(`[\x{0900}-\x{097F}]`),
	"Bengali":    regexp.MustCompile(`[\x{0980}-\x{09FF}]`),
	"Tamil":      regexp.MustCompile(`[\x{0B80}-\x{0BFF}]`),
	"Arabic":     regexp.MustCompile(`[\x{0600}-\x{06FF}\x{0750}-\x{077F}]`),
	"Han":        regexp.MustCompile(`[\x{4E00}-\x{9FFF}\x{3400}-\x{4DBF}]`),
}

var stripPattern = regexp.MustCompile(`[\s\p{P}]`)
var asciiAlnum = regexp.MustCompile(`[a-zA-Z0-9]`)

// IsSupported reports whether code normalizes to a member of the supported set.
func IsSupported(code string) bool {
	normalized := Normalize(code, "")
	return normalized != ""
}

// Normalize maps an arbitrary language tag or name to a supported two-letter
// code. Region subtags ("en-US", "hi_IN") are stripped, full names and common
// ISO variants are resolved through the alias table, and anything
// unrecognizable degrades to fallback. Never fails.
func Normalize(input, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return fallback
	}

	if i := strings.IndexByte(normalized, '-'); i >= 0 {
		normalized = normalized[:i]
	}
	if i := strings.IndexByte(normalized, '_'); i >= 0 {
		normalized = normalized[:i]
	}

	for _, lang := range Supported {
		if normalized == lang {
			return normalized
		}
	}

	if alias, ok := aliases[normalized]; ok {
		return alias
	}

	return fallback
}

// IsMostlyAscii reports whether at least threshold of the text's
// non-whitespace, non-punctuation characters are ASCII alphanumerics.
// Empty or punctuation-only text counts as ASCII. Used to spot romanized
// input such as "mera order" typed while Hindi is selected.
func IsMostlyAscii(text string, threshold float64) bool {
	if text == "" {
		return true
	}

	stripped := stripPattern.ReplaceAllString(text, "")
	if stripped == "" {
		return true
	}

	asciiCount := len(asciiAlnum.FindAllString(stripped, -1))
	total := len([]rune(stripped))
	return float64(asciiCount)/float64(total) >= threshold
}

// MatchesExpectedScript reports whether text looks like the script family
// associated with langCode.
func MatchesExpectedScript(text, langCode string) bool {
	if text == "" || langCode == "" {
		return false
	}

	meta, ok := Metadata[langCode]
	if !ok {
		return false
	}

	pattern, ok := scriptPatterns[meta.Script]
	if !ok {
		return false
	}

	if stripPattern.ReplaceAllString(text, "") == "" {
		return true
	}

	return pattern.MatchString(text)
}

// SourceLang resolves the source language to use for translating text.
// When a non-English language is selected but the text is Latin-script
// (a transliteration like Hinglish), the declared tag is overridden with
// auto-detection; forcing the declared script would corrupt the translation.
func SourceLang(text, selectedLang string) string {
	normalized := Normalize(selectedLang, "en")
	if normalized == "en" {
		return "en"
	}

	if !MatchesExpectedScript(text, normalized) && IsMostlyAscii(text, 0.7) {
		return Auto
	}

	return normalized
}
