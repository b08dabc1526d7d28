// Package audio handles WAV parsing, encoding, and cross-platform
// playback via oto/v3 for synthesized speech.
package audio
