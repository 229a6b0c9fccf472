package main

import (
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fleetops/fotasync"
	"github.com/fleetops/fotasync/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		flagInterval time.Duration
		flagPageSize int
		flagNoMirror bool
		flagDBPath   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the fleet periodically until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := fotasync.Config{
				PollInterval: flagInterval,
				PageSize:     flagPageSize,
			}
			if !flagNoMirror {
				recorder, err := newRecorder(flagDBPath)
				if err != nil {
					return err
				}
				defer recorder.Close()
				cfg.Recorder = recorder
			}

			_, coordinator, err := buildCoordinator(ctx, cfg)
			if err != nil {
				return err
			}
			logSnapshot(coordinator.Latest())
			return coordinator.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&flagInterval, "interval", config.Duration("FOTA_POLL_INTERVAL", fotasync.DefaultPollInterval), "Refresh interval (1m to 60m)")
	cmd.Flags().IntVar(&flagPageSize, "page-size", 0, "Listing page size (default 100)")
	cmd.Flags().BoolVar(&flagNoMirror, "no-mirror", false, "Disable the local SQLite fleet mirror")
	cmd.Flags().StringVar(&flagDBPath, "db", "", "SQLite mirror path (default from FOTA_DB_PATH)")
	return cmd
}

func newRecorder(path string) (*fotasync.SQLiteRecorder, error) {
	if path != "" {
		return fotasync.NewSQLiteRecorderAt(path)
	}
	return fotasync.NewSQLiteRecorder()
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the API token is accepted",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := buildClient()
			if err != nil {
				return err
			}
			if err := client.ValidateToken(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("token accepted")
			return nil
		},
	}
	return cmd
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch the fleet once and print its metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, coordinator, err := buildCoordinator(cmd.Context(), fotasync.Config{})
			if err != nil {
				return err
			}
			snap := coordinator.Latest()
			logSnapshot(snap)
			for _, imei := range sortedIMEIs(snap) {
				dev := snap.Devices[imei]
				log.Info().
					Str("imei", dev.IMEI).
					Str("name", dev.Name).
					Str("status", dev.ActivityStatus).
					Str("firmware", dev.Firmware).
					Int("queued_tasks", len(dev.TaskQueue)).
					Msg("device")
			}
			return nil
		},
	}
	return cmd
}

func sortedIMEIs(snap *fotasync.Snapshot) []string {
	imeis := make([]string, 0, len(snap.Devices))
	for imei := range snap.Devices {
		imeis = append(imeis, imei)
	}
	sort.Strings(imeis)
	return imeis
}
