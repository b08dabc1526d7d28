package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readable/tts"
	"github.com/dgnsrekt/readable/tts/engines"
)

var remoteVoices bool

var voicesCmd = &cobra.Command{
	Use:   "voices [QUERY]",
	Short: "List the available voices",
	Long:  paragraph(fmt.Sprintf("\nList the voices %s can read with. Pass a QUERY to fuzzy-filter by ID or name.", keyword("readable"))),
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		var query string
		if len(args) > 0 {
			query = args[0]
		}
		if remoteVoices {
			return listRemoteVoices(query)
		}

		catalog := tts.Voices()
		if query != "" {
			targets := make([]string, 0, len(catalog)*2)
			for _, v := range catalog {
				targets = append(targets, v.ID, v.Name)
			}
			matches := fuzzy.Find(query, targets)
			if len(matches) == 0 {
				return fmt.Errorf("no voices match %q", query)
			}
			seen := make(map[int]bool)
			var filtered []tts.Voice
			for _, m := range matches {
				idx := m.Index / 2
				if !seen[idx] {
					seen[idx] = true
					filtered = append(filtered, catalog[idx])
				}
			}
			catalog = filtered
		}

		for _, v := range catalog {
			fmt.Printf("%s %-14s %-10s %-9s %s\n", voiceMarker(v.ID), v.ID, v.Name, v.Accent, v.Gender)
		}
		if query == "" {
			fmt.Printf("\nSpeeds: %s (anything from %g to %g works)\n",
				speedList(tts.SpeedPresets), tts.SpeedMin, tts.SpeedMax)
		}
		return nil
	},
}

func speedList(speeds []float64) string {
	parts := make([]string, len(speeds))
	for i, s := range speeds {
		parts[i] = fmt.Sprintf("%gx", s)
	}
	return strings.Join(parts, " ")
}

// listRemoteVoices asks the configured kokoro server what it can
// actually speak with, which may differ from the built-in catalog.
func listRemoteVoices(query string) error {
	k := engines.NewKokoro(engines.KokoroConfig{URL: ttsConfig.Kokoro.URL})
	ids, err := k.Voices(context.Background())
	if err != nil {
		return err
	}
	if query != "" {
		matches := fuzzy.Find(query, ids)
		if len(matches) == 0 {
			return fmt.Errorf("no voices match %q", query)
		}
		filtered := make([]string, len(matches))
		for i, m := range matches {
			filtered[i] = ids[m.Index]
		}
		ids = filtered
	}
	for _, id := range ids {
		fmt.Printf("%s %s\n", voiceMarker(id), id)
	}
	return nil
}

func voiceMarker(id string) string {
	if id == ttsConfig.Voice {
		return "*"
	}
	return " "
}

func init() {
	voicesCmd.Flags().BoolVar(&remoteVoices, "remote", false, "ask the configured kokoro server instead of the built-in catalog")
}
