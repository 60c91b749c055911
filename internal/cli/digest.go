package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var digestDay string

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Summarize one day's records",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, log, err := setup(false)
		if err != nil {
			return err
		}
		defer log.Close()
		defer b.Close()

		day := time.Now()
		if digestDay != "" {
			day, err = time.ParseInLocation("2006-01-02", digestDay, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --day (want YYYY-MM-DD): %w", err)
			}
		}

		text, err := b.Digest(cmd.Context(), day)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

func init() {
	digestCmd.Flags().StringVar(&digestDay, "day", "", "day to summarize (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(digestCmd)
}
