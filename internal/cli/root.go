package cli

import (
	"github.com/spf13/cobra"

	"github.com/dartungar/digital-butler-sub001/internal/butler"
	"github.com/dartungar/digital-butler-sub001/internal/config"
	"github.com/dartungar/digital-butler-sub001/internal/logger"
)

const version = "0.1.0"

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "butler",
	Short: "Butler - personal context aggregator",
	Long: `Butler aggregates personal information from calendar feeds, journal
files and notes into one store, and indexes long-form notes for semantic
retrieval.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.butler/butler.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// setup loads config, builds the logger and the service. Callers own the
// returned closers.
func setup(console bool) (*butler.Butler, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		Console:    console,
		Pretty:     console,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, nil, err
	}

	b, err := butler.New(cfg, log.Logger)
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	return b, log, nil
}
