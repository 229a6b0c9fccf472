package fotasync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fleetops/fotasync/internal/fota"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Poll interval defaults and bounds for the periodic refresh.
const (
	DefaultPollInterval = 5 * time.Minute
	MinPollInterval     = time.Minute
	MaxPollInterval     = 60 * time.Minute

	defaultPageSize = 100
)

// Config controls Coordinator behavior.
type Config struct {
	Client       RemoteClient
	PollInterval time.Duration
	PageSize     int
	Recorder     SnapshotRecorder
}

// Coordinator owns the fleet snapshot: it runs the periodic refresh loop,
// deduplicates on-demand refresh requests, classifies fetch failures and
// publishes each new snapshot atomically. Readers never block.
type Coordinator struct {
	cfg      Config
	client   RemoteClient
	recorder SnapshotRecorder

	snapshot atomic.Pointer[Snapshot]
	group    singleflight.Group

	mu       sync.Mutex
	inFlight bool
	pending  bool
	runCtx   context.Context

	backgroundGroup sync.WaitGroup
}

// NewCoordinator builds a coordinator and performs the initial refresh
// synchronously; a failure there is fatal and returned to the caller. All
// later refreshes only degrade freshness when they fail.
func NewCoordinator(ctx context.Context, cfg Config) (*Coordinator, error) {
	if cfg.Client == nil {
		return nil, errors.New("remote client cannot be nil")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollInterval < MinPollInterval {
		cfg.PollInterval = MinPollInterval
	}
	if cfg.PollInterval > MaxPollInterval {
		cfg.PollInterval = MaxPollInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}

	c := &Coordinator{
		cfg:      cfg,
		client:   cfg.Client,
		recorder: recorder,
		runCtx:   context.Background(),
	}
	if _, err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Latest returns the current snapshot without fetching. It never blocks and
// is never nil once the coordinator is constructed.
func (c *Coordinator) Latest() *Snapshot {
	return c.snapshot.Load()
}

// Refresh performs one full synchronization round and returns the new
// snapshot. Concurrent callers collapse into the in-flight round. On failure
// the stored snapshot is left unchanged and the error is classified as
// *ReauthRequiredError or *UpdateFailedError.
func (c *Coordinator) Refresh(ctx context.Context) (*Snapshot, error) {
	result, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Snapshot), nil
}

// RequestRefresh schedules a refresh without blocking. While a round is in
// flight, any number of concurrent requests collapse into exactly one
// follow-up round that starts after the current one completes, so callers are
// guaranteed a refresh that begins no earlier than their request.
func (c *Coordinator) RequestRefresh() {
	c.mu.Lock()
	if c.inFlight {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	ctx := c.runCtx
	c.mu.Unlock()

	c.backgroundGroup.Add(1)
	go c.backgroundRefresh(ctx)
}

func (c *Coordinator) backgroundRefresh(ctx context.Context) {
	defer c.backgroundGroup.Done()
	for {
		if _, err := c.Refresh(ctx); err != nil {
			log.Error().Err(err).Bool("reauth_required", IsReauthRequired(err)).
				Msg("background fleet refresh failed")
		}
		c.mu.Lock()
		if c.pending {
			c.pending = false
			c.mu.Unlock()
			continue
		}
		c.inFlight = false
		c.mu.Unlock()
		return
	}
}

// Run drives the periodic refresh until the context is cancelled. Scheduled
// refresh failures are logged and never stop the loop; the timer is torn down
// only with the coordinator itself.
func (c *Coordinator) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	log.Info().Dur("poll_interval", c.cfg.PollInterval).Msg("start fleet synchronization loop")
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.backgroundGroup.Wait()
			c.mu.Lock()
			c.runCtx = context.Background()
			c.mu.Unlock()
			return nil
		case <-ticker.C:
			c.RequestRefresh()
		}
	}
}

// doRefresh executes one round: all device pages, the first task page, then
// account stats, in that fixed order. The new snapshot is stored only when
// every step succeeded.
func (c *Coordinator) doRefresh(ctx context.Context) (*Snapshot, error) {
	snap := newSnapshot()

	devices, err := collectPages(ctx, func(ctx context.Context, page int) ([]Device, int, error) {
		devicePage, err := c.client.ListDevices(ctx, page, c.cfg.PageSize)
		if err != nil {
			return nil, 0, err
		}
		return devicePage.Items, devicePage.LastPage, nil
	})
	if err != nil {
		return nil, c.classify(errors.Wrap(err, "fetch devices failed"))
	}
	for _, dev := range devices {
		if dev.IMEI == "" {
			continue
		}
		snap.Devices[dev.IMEI] = dev
	}

	// Only the first task page: the account task history grows without bound
	// and the recent page is what feeds the pending/failed counters. This
	// mirrors the upstream service; revisit if the API grows a status filter.
	taskPage, err := c.client.ListTasks(ctx, 1, c.cfg.PageSize)
	if err != nil {
		return nil, c.classify(errors.Wrap(err, "fetch tasks failed"))
	}
	snap.Tasks = taskPage.Items

	stats, err := c.client.GetCompanyStats(ctx)
	if err != nil {
		return nil, c.classify(errors.Wrap(err, "fetch company stats failed"))
	}
	snap.Stats = stats
	snap.FetchedAt = time.Now().UTC()

	c.snapshot.Store(snap)
	log.Info().
		Int("devices", snap.TotalDevices()).
		Int("online", snap.OnlineDevices()).
		Int("tasks", len(snap.Tasks)).
		Int("pending_tasks", snap.PendingTasks()).
		Int("failed_tasks", snap.FailedTasks()).
		Msg("fleet snapshot refreshed")

	if err := c.recorder.RecordSnapshot(ctx, snap); err != nil {
		log.Error().Err(err).Msg("snapshot recorder failed")
	}
	return snap, nil
}

// classify maps capability failures onto the coordinator's error taxonomy:
// credential rejections demand reauthentication, everything else is a
// transient update failure the next tick retries.
func (c *Coordinator) classify(err error) error {
	if fota.IsAuthError(err) {
		return &ReauthRequiredError{Err: err}
	}
	return &UpdateFailedError{Err: err}
}
