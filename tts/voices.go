package tts

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Voice describes one voice the synthesis engine ships with.
type Voice struct {
	ID     string // engine identifier, e.g. "af_bella"
	Name   string // display name
	Accent string // "American" or "British"
	Gender string // "Female" or "Male"
}

// DefaultVoice is used when no voice is configured.
const DefaultVoice = "af_bella"

// Supported playback speed range. SpeedPresets are the values the
// picker offers; anything inside the range is accepted.
const (
	SpeedMin = 0.25
	SpeedMax = 4.0
)

var SpeedPresets = []float64{0.75, 1.0, 1.25, 1.5}

// voices is the stock Kokoro catalog. IDs encode accent and gender:
// "af" American female, "bm" British male.
var voices = []Voice{
	{ID: "af_bella", Name: "Bella", Accent: "American", Gender: "Female"},
	{ID: "af_sarah", Name: "Sarah", Accent: "American", Gender: "Female"},
	{ID: "am_adam", Name: "Adam", Accent: "American", Gender: "Male"},
	{ID: "am_michael", Name: "Michael", Accent: "American", Gender: "Male"},
	{ID: "bf_emma", Name: "Emma", Accent: "British", Gender: "Female"},
	{ID: "bf_isabella", Name: "Isabella", Accent: "British", Gender: "Female"},
	{ID: "bm_george", Name: "George", Accent: "British", Gender: "Male"},
	{ID: "bm_lewis", Name: "Lewis", Accent: "British", Gender: "Male"},
}

// Voices returns a copy of the known catalog.
func Voices() []Voice {
	out := make([]Voice, len(voices))
	copy(out, voices)
	return out
}

// MatchVoice resolves a user-supplied voice query. Exact IDs win; any
// other query is fuzzy-matched against IDs and display names, so
// "bella", "Isabella", and "george" all resolve.
func MatchVoice(query string) (Voice, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Voice{}, fmt.Errorf("%w: empty query", ErrUnknownVoice)
	}
	for _, v := range voices {
		if strings.EqualFold(v.ID, q) {
			return v, nil
		}
	}
	targets := make([]string, 0, len(voices)*2)
	for _, v := range voices {
		targets = append(targets, v.ID, v.Name)
	}
	matches := fuzzy.Find(q, targets)
	if len(matches) == 0 {
		return Voice{}, fmt.Errorf("%w: %q", ErrUnknownVoice, query)
	}
	return voices[matches[0].Index/2], nil
}

// ValidateSpeed checks that speed is within the supported range.
func ValidateSpeed(speed float64) error {
	if speed < SpeedMin || speed > SpeedMax {
		return fmt.Errorf("%w: %g not in %g..%g", ErrInvalidSpeed, speed, SpeedMin, SpeedMax)
	}
	return nil
}
