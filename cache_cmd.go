package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the audio cache",
	Long:  paragraph(fmt.Sprintf("\nInspect or empty the synthesized-audio cache. Cached chunks make repeat readings %s.", keyword("instant"))),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and contents",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		store, err := openCacheStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		st := store.Stats()
		fmt.Printf("Entries: %d\n", st.Entries)
		fmt.Printf("Size:    %s of %s", humanize.IBytes(uint64(st.TotalBytes)), humanize.IBytes(uint64(st.MaxBytes)))
		if st.OriginalBytes > st.TotalBytes {
			fmt.Printf(" (%s before compression)", humanize.IBytes(uint64(st.OriginalBytes)))
		}
		fmt.Println()

		entries := store.Entries()
		if len(entries) == 0 {
			return nil
		}
		fmt.Println("\nMost recently used:")
		for i, e := range entries {
			if i == 10 {
				fmt.Printf("  and %d more\n", len(entries)-i)
				break
			}
			fmt.Printf("  %-34s %-12s %gx %9s  %s\n",
				fmt.Sprintf("%q", e.TextPreview), e.Voice, e.Speed,
				humanize.IBytes(uint64(e.Size)), humanize.Time(e.LastAccess))
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached audio",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		store, err := openCacheStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		st := store.Stats()
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Printf("Cleared %d entries, freed %s.\n", st.Entries, humanize.IBytes(uint64(st.TotalBytes)))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
