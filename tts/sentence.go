package tts

import (
	"strings"
	"unicode"
)

// abbreviations end with a period without ending a sentence. Lowercase,
// no trailing dot. Dotted forms like "e.g." and initials are handled by
// the single-letter rule in isSentenceEnd.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "rev": {},
	"gen": {}, "sen": {}, "rep": {}, "gov": {}, "capt": {}, "sgt": {},
	"st": {}, "jr": {}, "sr": {}, "hon": {},
	"vs": {}, "etc": {}, "al": {}, "cf": {}, "ca": {}, "viz": {},
	"inc": {}, "ltd": {}, "corp": {}, "co": {}, "bros": {}, "assn": {},
	"dept": {}, "univ": {}, "est": {}, "div": {},
	"ave": {}, "blvd": {}, "rd": {}, "hwy": {}, "apt": {}, "ste": {},
	"approx": {}, "appt": {}, "misc": {}, "min": {}, "max": {},
	"no": {}, "tel": {}, "ext": {}, "fig": {}, "vol": {}, "pp": {},
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {}, "jul": {},
	"aug": {}, "sep": {}, "sept": {}, "oct": {}, "nov": {}, "dec": {},
}

// SplitSentences splits text into sentences. A sentence ends at '.',
// '!' or '?' followed by whitespace or end of text. Periods after
// known abbreviations, after single-letter initials, and between
// digits do not end a sentence, and ellipses stay inside one.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		if !isSentenceEnd(runes, i) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// isSentenceEnd decides whether the terminator at position i really
// closes a sentence.
func isSentenceEnd(runes []rune, i int) bool {
	r := runes[i]

	// '!' and '?' are unambiguous.
	if r == '!' || r == '?' {
		return i == len(runes)-1 || unicode.IsSpace(runes[i+1])
	}

	// Ellipsis glues its sentence together.
	if i+1 < len(runes) && runes[i+1] == '.' {
		return false
	}
	if i > 0 && runes[i-1] == '.' {
		return false
	}

	// Decimal point: digits on both sides.
	if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
		return false
	}

	// A period only ends a sentence before whitespace or end of text.
	if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
		return false
	}

	// The word before the period rules out abbreviations and initials
	// like "Dr." or the "J." in "J. Smith". Dotted abbreviations such
	// as "e.g." land here as the single letter "g".
	word := wordBefore(runes, i)
	if word != "" {
		if _, ok := abbreviations[strings.ToLower(word)]; ok {
			return false
		}
		wr := []rune(word)
		if len(wr) == 1 && unicode.IsLetter(wr[0]) {
			return false
		}
	}
	return true
}

// wordBefore returns the run of letters and digits immediately before
// position i.
func wordBefore(runes []rune, i int) string {
	start := i
	for start > 0 && (unicode.IsLetter(runes[start-1]) || unicode.IsDigit(runes[start-1])) {
		start--
	}
	return string(runes[start:i])
}
