package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one full sync of all sources and notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, log, err := setup(false)
		if err != nil {
			return err
		}
		defer log.Close()
		defer b.Close()

		summary, err := b.SyncAll(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Sync %s finished in %s\n", summary.RunID, summary.Duration.Round(time.Millisecond))
		fmt.Printf("  records: %d added, %d updated, %d unchanged, %d errors\n",
			summary.RecordsAdded, summary.RecordsUpdated, summary.RecordsUnchanged, summary.RecordErrors)
		fmt.Printf("  notes:   %d created, %d updated, %d unchanged, %d failed\n",
			summary.DocsCreated, summary.DocsUpdated, summary.DocsUnchanged, summary.DocsFailed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
