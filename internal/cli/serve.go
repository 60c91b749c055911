package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dartungar/digital-butler-sub001/internal/butler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the butler daemon (scheduled syncs, file watching, digests)",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, log, err := setup(true)
		if err != nil {
			return err
		}
		defer log.Close()
		defer b.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		daemon := butler.NewDaemon(b, log.Logger)
		if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
