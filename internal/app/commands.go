package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"showdown-tracker/internal/battlelog"
	"showdown-tracker/internal/config"
	"showdown-tracker/internal/loader"
	"showdown-tracker/internal/stats"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newVersionCmd(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "showdown-tracker version %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Date: %s\n", date)
		},
	}
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a replay file and print the extracted match facts as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return parseFile(cmd.OutOrStdout(), args[0])
		},
	}
}

func parseFile(w io.Writer, path string) error {
	payload, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(battlelog.Parse(payload))
}

func newStatsCmd() *cobra.Command {
	var (
		identities []string
		format     string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "stats <file-or-dir>...",
		Short: "Summarise wins, losses and opponents across local replay files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(identities) == 0 {
				return fmt.Errorf("at least one --me name is required")
			}

			records, err := loadRecords(args)
			if err != nil {
				// partial results are still worth reporting
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			if format != "" {
				records = stats.Filter{Format: format}.Apply(records)
			}

			summary := stats.Aggregate(records, identities)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			writeSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&identities, "me", nil, "your player name; repeat or comma-separate for alts")
	cmd.Flags().StringVar(&format, "format", "", "only count replays of this format")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

// loadRecords parses every file and every supported file inside each directory.
func loadRecords(paths []string) ([]battlelog.MatchFacts, error) {
	var (
		records []battlelog.MatchFacts
		errs    []string
	)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		var payloads []battlelog.RawMatchPayload
		if info.IsDir() {
			payloads, err = loader.LoadDir(path)
		} else {
			var payload battlelog.RawMatchPayload
			payload, err = loader.LoadFile(path)
			if err == nil {
				payloads = append(payloads, payload)
			}
		}
		if err != nil {
			errs = append(errs, err.Error())
		}

		for _, payload := range payloads {
			records = append(records, battlelog.Parse(payload))
		}
	}

	if len(errs) > 0 {
		return records, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return records, nil
}

func writeSummary(w io.Writer, s stats.Summary) {
	if s.Count == 0 {
		fmt.Fprintln(w, "No rated battles found for these names.")
		return
	}

	fmt.Fprintf(w, "Battles:  %d (%d wins, %d losses, %d unknown)\n", s.Count, s.Wins, s.Losses, s.Unknown)
	fmt.Fprintf(w, "Win rate: %d%%\n", s.WinRate)
	fmt.Fprintf(w, "Rating:   %d - %d\n", s.MinRating, s.MaxRating)

	writeTop(w, "Beaten most often", s.WinOpponents)
	writeTop(w, "Lost to most often", s.LossOpponents)
}

func writeTop(w io.Writer, title string, table stats.OpponentTable) {
	top := table.Top(6)
	if len(top) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, row := range top {
		fmt.Fprintf(w, "  %-20s %d\n", row.Species, row.Count)
	}
}

func newInitConfigCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write an example config file to the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName + "." + format
			if err := config.GenerateExample(path, format); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "yml", "config format: yml or toml")
	return cmd
}
