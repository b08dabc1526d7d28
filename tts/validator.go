package tts

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Limits bounds what the pipeline accepts.
type Limits struct {
	MaxTextChars  int // characters of input text
	MaxChunks     int // projected chunk count
	MaxChunkChars int // chunk size used for the projection
}

// DefaultLimits returns the stock guardrails: one million characters
// and one hundred chunks of up to DefaultMaxChunkChars each.
func DefaultLimits() Limits {
	return Limits{
		MaxTextChars:  1_000_000,
		MaxChunks:     100,
		MaxChunkChars: DefaultMaxChunkChars,
	}
}

// Validator rejects pathological input before any chunking or network
// cost is paid. It holds no state beyond its limits and never touches
// the network.
type Validator struct {
	limits Limits
}

// NewValidator builds a validator, filling zero limits from
// DefaultLimits.
func NewValidator(limits Limits) *Validator {
	def := DefaultLimits()
	if limits.MaxTextChars <= 0 {
		limits.MaxTextChars = def.MaxTextChars
	}
	if limits.MaxChunks <= 0 {
		limits.MaxChunks = def.MaxChunks
	}
	if limits.MaxChunkChars <= 0 {
		limits.MaxChunkChars = def.MaxChunkChars
	}
	return &Validator{limits: limits}
}

// Validate checks text against the limits and returns a
// *ValidationError naming the first guardrail it trips, or nil. Text
// at exactly the length limit passes.
func (v *Validator) Validate(text string) error {
	if n := utf8.RuneCountInString(text); n > v.limits.MaxTextChars {
		return &ValidationError{
			Reason: ReasonTooLong,
			Detail: fmt.Sprintf("%d chars exceeds limit of %d", n, v.limits.MaxTextChars),
		}
	}
	if looksBinary(text) {
		return &ValidationError{
			Reason: ReasonBinaryContent,
			Detail: "input does not look like readable text",
		}
	}
	if c := CountChunks(text, v.limits.MaxChunkChars); c > v.limits.MaxChunks {
		return &ValidationError{
			Reason: ReasonTooManyChunks,
			Detail: fmt.Sprintf("%d chunks exceeds limit of %d", c, v.limits.MaxChunks),
		}
	}
	return nil
}

// looksBinary reports text that cannot be spoken: anything with a NUL
// byte, or where non-printable characters outnumber printable ones.
// Invalid UTF-8 counts as non-printable.
func looksBinary(text string) bool {
	total, bad := 0, 0
	for _, r := range text {
		total++
		switch r {
		case '\n', '\r', '\t':
			continue
		}
		if r == 0 {
			return true
		}
		if r == utf8.RuneError || !unicode.IsPrint(r) {
			bad++
		}
	}
	return total > 0 && bad*2 > total
}
