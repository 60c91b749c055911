package cli

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/dartungar/digital-butler-sub001/pkg/vectorindex"
)

var (
	searchTopK     int
	searchMinScore float64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over indexed notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, log, err := setup(false)
		if err != nil {
			return err
		}
		defer log.Close()
		defer b.Close()

		query := strings.Join(args, " ")
		results, err := b.Search(cmd.Context(), query, searchTopK, searchMinScore)
		if errors.Is(err, vectorindex.ErrIndexUnavailable) {
			return errors.New("search is disabled: vector index or embedding provider unavailable")
		}
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. %s (%.2f)", i+1, r.DocumentPath, r.Score)
			if r.StartLine > 0 {
				fmt.Printf(" lines %d-%d", r.StartLine, r.EndLine)
			}
			fmt.Println()
			fmt.Println(indent(snippet(r.Content, 300), "   "))
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 0, "maximum results (0 uses the configured default)")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0.3, "minimum similarity score in [0, 1]")
	rootCmd.AddCommand(searchCmd)
}

func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	// Back up to a rune boundary so multi-byte content stays valid UTF-8.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
