package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store counts and index availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, log, err := setup(false)
		if err != nil {
			return err
		}
		defer log.Close()
		defer b.Close()

		st, err := b.Status(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("records:   %d\n", st.Records)
		fmt.Printf("documents: %d\n", st.Documents)
		fmt.Printf("chunks:    %d\n", st.Chunks)
		if st.IndexAvailable {
			fmt.Printf("index:     available (%d embeddings)\n", st.IndexedChunks)
		} else {
			fmt.Println("index:     unavailable (search disabled)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
