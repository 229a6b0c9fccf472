package main

import (
	"os"

	"github.com/fleetops/fotasync/internal/env"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fotasync",
	Short: "Keep a local snapshot of a FOTA fleet in sync",
	Long: `fotasync polls a FOTA fleet-management account (devices, maintenance
tasks, account statistics) into a consistent local snapshot, optionally
mirrored into SQLite, and issues task mutations (cancel, create, retry)
against the remote API.`,
}

var (
	rootToken   string
	rootBaseURL string
)

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	rootCmd.PersistentFlags().StringVar(&rootToken, "token", "", "API token override (default from FOTA_API_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&rootBaseURL, "base-url", "", "API base URL override (default from FOTA_BASE_URL)")
	rootCmd.AddCommand(
		newWatchCmd(),
		newStatusCmd(),
		newVerifyCmd(),
		newTasksCmd(),
	)
	_ = env.Ensure()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("fotasync command failed")
	}
}
