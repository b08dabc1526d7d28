package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/readable/ui"
)

var renderHistory bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past readings",
	Long:  paragraph(fmt.Sprintf("\nBrowse what %s has read to you, or replay the text of a past session.", keyword("readable"))),
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent readings",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		j, err := historyJournal()
		if err != nil {
			return err
		}
		sessions := j.Recent(0)
		if len(sessions) == 0 {
			fmt.Println("No history yet.")
			return nil
		}
		for i, s := range sessions {
			fmt.Printf("%2d. %-14s %-12s %gx %8s  %q\n",
				i+1, humanize.Time(s.CreatedAt), s.Voice, s.Speed,
				"~"+estimateString(s.DurationEstimate), s.Preview)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [N]",
	Short: "Print the text of reading N (1 = most recent)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		n := 1
		if len(args) > 0 {
			var err error
			n, err = strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid session number %q", args[0])
			}
		}

		j, err := historyJournal()
		if err != nil {
			return err
		}
		s, err := j.Get(n)
		if err != nil {
			return err
		}

		fmt.Printf("Read %s with %s at %gx (%d chunks, ~%s)\n\n",
			humanize.Time(s.CreatedAt), s.Voice, s.Speed, s.ChunkCount,
			estimateString(s.DurationEstimate))

		if !renderHistory {
			fmt.Println(s.Text)
			return nil
		}

		uiCfg, err := env.ParseAs[ui.Config]()
		if err != nil {
			return fmt.Errorf("error parsing environment: %w", err)
		}
		styleOpt := glamour.WithAutoStyle()
		if uiCfg.RenderStyle != "auto" {
			styleOpt = glamour.WithStylePath(uiCfg.RenderStyle)
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithColorProfile(lipgloss.ColorProfile()),
			styleOpt,
			glamour.WithWordWrap(helpWidth),
		)
		if err != nil {
			return fmt.Errorf("unable to create renderer: %w", err)
		}
		out, err := r.Render(s.Text)
		if err != nil {
			return fmt.Errorf("unable to render text: %w", err)
		}
		fmt.Print(out)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget all past readings",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		j, err := historyJournal()
		if err != nil {
			return err
		}
		n := j.Len()
		if err := j.Clear(); err != nil {
			return err
		}
		fmt.Printf("Cleared %d sessions.\n", n)
		return nil
	},
}

// estimateString renders an estimated duration in seconds the way a
// person would say it.
func estimateString(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	if d >= time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func init() {
	historyShowCmd.Flags().BoolVar(&renderHistory, "render", false, "render the text as markdown")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyClearCmd)
}
