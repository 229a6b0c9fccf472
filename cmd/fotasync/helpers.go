package main

import (
	"context"
	"strings"

	"github.com/fleetops/fotasync"
	"github.com/fleetops/fotasync/internal/config"
	"github.com/fleetops/fotasync/internal/fota"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func buildClient() (*fota.Client, error) {
	token := firstNonEmpty(rootToken, config.String("FOTA_API_TOKEN", ""))
	if token == "" {
		return nil, errors.New("--token or FOTA_API_TOKEN must be provided")
	}
	baseURL := firstNonEmpty(rootBaseURL, config.String("FOTA_BASE_URL", ""))
	return fota.NewClient(token, fota.WithBaseURL(baseURL))
}

// buildCoordinator wires a client and coordinator; the initial refresh runs
// here, so a bad token or unreachable API fails fast.
func buildCoordinator(ctx context.Context, cfg fotasync.Config) (*fota.Client, *fotasync.Coordinator, error) {
	client, err := buildClient()
	if err != nil {
		return nil, nil, err
	}
	cfg.Client = client
	coordinator, err := fotasync.NewCoordinator(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, coordinator, nil
}

func logSnapshot(snap *fotasync.Snapshot) {
	log.Info().
		Int("devices", snap.TotalDevices()).
		Int("online", snap.OnlineDevices()).
		Int("offline", snap.OfflineDevices()).
		Int("tasks", len(snap.Tasks)).
		Int("pending_tasks", snap.PendingTasks()).
		Int("failed_tasks", snap.FailedTasks()).
		Int("groups", snap.GroupCount()).
		Time("fetched_at", snap.FetchedAt).
		Msg("fleet snapshot")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
