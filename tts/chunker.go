package tts

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkChars is the largest chunk the synthesis API accepts
// comfortably. The hard API limit is a little higher; staying under it
// leaves headroom for the engine's own tokenization.
const DefaultMaxChunkChars = 750

// Normalize collapses every whitespace run to a single space and trims
// the ends. Chunking, fingerprinting, and cache lookups all operate on
// normalized text so equivalent inputs share cache entries.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split breaks text into ordered chunks of at most maxChars characters.
// Sentences stay whole when they fit, with the joining space counted
// against the limit. A sentence longer than the limit is split at word
// boundaries, and a single word longer than the limit is cut at the
// exact character limit. Empty or whitespace-only input yields no
// chunks. maxChars <= 0 selects DefaultMaxChunkChars.
func Split(text string, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	text = Normalize(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return []Chunk{{Index: 0, Text: text}}
	}

	var (
		texts  []string
		buf    []string
		length int
	)
	flush := func() {
		if len(buf) > 0 {
			texts = append(texts, strings.Join(buf, " "))
			buf = buf[:0]
			length = 0
		}
	}
	for _, sentence := range SplitSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if n > maxChars {
			flush()
			texts = append(texts, splitLongSentence(sentence, maxChars)...)
			continue
		}
		if length+n+1 > maxChars {
			flush()
			buf = append(buf, sentence)
			length = n
			continue
		}
		buf = append(buf, sentence)
		length += n + 1
	}
	flush()

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{Index: i, Text: t}
	}
	return chunks
}

// CountChunks reports how many chunks Split would produce. The
// validator uses it to reject inputs that would fan out into too much
// synthesis work.
func CountChunks(text string, maxChars int) int {
	return len(Split(text, maxChars))
}

// splitLongSentence cuts an oversized sentence at word boundaries. A
// word longer than the limit is sliced at exactly maxChars; the tail
// of a sliced word seeds the next piece so progress is always made.
func splitLongSentence(sentence string, maxChars int) []string {
	var (
		parts  []string
		buf    []string
		length int
	)
	flush := func() {
		if len(buf) > 0 {
			parts = append(parts, strings.Join(buf, " "))
			buf = buf[:0]
			length = 0
		}
	}
	for _, word := range strings.Fields(sentence) {
		n := utf8.RuneCountInString(word)
		if n > maxChars {
			flush()
			runes := []rune(word)
			for len(runes) > maxChars {
				parts = append(parts, string(runes[:maxChars]))
				runes = runes[maxChars:]
			}
			if len(runes) > 0 {
				buf = append(buf, string(runes))
				length = len(runes)
			}
			continue
		}
		if length+n+1 > maxChars {
			flush()
			buf = append(buf, word)
			length = n
			continue
		}
		buf = append(buf, word)
		length += n + 1
	}
	flush()
	return parts
}
