package fotasync

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TaskCommands issues task mutations against the remote API. Every command
// makes exactly one capability call; on success it requests a coordinator
// refresh so the snapshot catches up, on failure it returns a
// *CommandFailedError and leaves the snapshot alone. Commands never edit the
// snapshot optimistically and never retry.
type TaskCommands struct {
	client      RemoteClient
	coordinator *Coordinator
}

// NewTaskCommands binds mutation commands to a client and its coordinator.
func NewTaskCommands(client RemoteClient, coordinator *Coordinator) (*TaskCommands, error) {
	if client == nil {
		return nil, errors.New("remote client cannot be nil")
	}
	if coordinator == nil {
		return nil, errors.New("coordinator cannot be nil")
	}
	return &TaskCommands{client: client, coordinator: coordinator}, nil
}

// CancelTask cancels a single task.
func (tc *TaskCommands) CancelTask(ctx context.Context, taskID int64) (Ack, error) {
	if taskID <= 0 {
		return nil, &CommandFailedError{Op: "cancel task", Err: errors.Errorf("task id must be positive, got %d", taskID)}
	}
	return tc.CancelTasks(ctx, []int64{taskID})
}

// CancelTasks cancels the given tasks in one bulk call. Duplicate ids are the
// caller's concern.
func (tc *TaskCommands) CancelTasks(ctx context.Context, taskIDs []int64) (Ack, error) {
	const op = "cancel tasks"
	if len(taskIDs) == 0 {
		return nil, &CommandFailedError{Op: op, Err: errors.New("task id list cannot be empty")}
	}
	for _, id := range taskIDs {
		if id <= 0 {
			return nil, &CommandFailedError{Op: op, Err: errors.Errorf("task id must be positive, got %d", id)}
		}
	}
	ack, err := tc.client.CancelTasks(ctx, taskIDs)
	if err != nil {
		return nil, &CommandFailedError{Op: op, Err: err}
	}
	log.Info().Ints64("task_ids", taskIDs).Msg("cancelled tasks")
	tc.coordinator.RequestRefresh()
	return ack, nil
}

// CancelPendingTasks cancels everything queued on the given device, using the
// latest snapshot's task queue. An empty or absent queue is a no-op that
// makes no network call.
func (tc *TaskCommands) CancelPendingTasks(ctx context.Context, imei string) (Ack, error) {
	if imei == "" {
		return nil, &CommandFailedError{Op: "cancel pending tasks", Err: errors.New("device imei cannot be empty")}
	}
	ids := tc.coordinator.Latest().PendingTaskIDs(imei)
	if len(ids) == 0 {
		log.Debug().Str("imei", imei).Msg("no pending tasks to cancel")
		return nil, nil
	}
	return tc.CancelTasks(ctx, ids)
}

// CreateFirmwareTask queues a firmware update for a device.
func (tc *TaskCommands) CreateFirmwareTask(ctx context.Context, imei string, firmwareID int64) (Ack, error) {
	const op = "create firmware task"
	if imei == "" {
		return nil, &CommandFailedError{Op: op, Err: errors.New("device imei cannot be empty")}
	}
	if firmwareID <= 0 {
		return nil, &CommandFailedError{Op: op, Err: errors.Errorf("firmware id must be positive, got %d", firmwareID)}
	}
	ack, err := tc.client.CreateFirmwareTask(ctx, imei, firmwareID)
	if err != nil {
		return nil, &CommandFailedError{Op: op, Err: err}
	}
	log.Info().Str("imei", imei).Int64("firmware_id", firmwareID).Msg("created firmware task")
	tc.coordinator.RequestRefresh()
	return ack, nil
}

// CreateConfigTask queues a configuration update for a device.
func (tc *TaskCommands) CreateConfigTask(ctx context.Context, imei string, configID int64) (Ack, error) {
	const op = "create configuration task"
	if imei == "" {
		return nil, &CommandFailedError{Op: op, Err: errors.New("device imei cannot be empty")}
	}
	if configID <= 0 {
		return nil, &CommandFailedError{Op: op, Err: errors.Errorf("config id must be positive, got %d", configID)}
	}
	ack, err := tc.client.CreateConfigTask(ctx, imei, configID)
	if err != nil {
		return nil, &CommandFailedError{Op: op, Err: err}
	}
	log.Info().Str("imei", imei).Int64("config_id", configID).Msg("created configuration task")
	tc.coordinator.RequestRefresh()
	return ack, nil
}

// RetryFailedTasks re-queues the failed tasks of a batch.
func (tc *TaskCommands) RetryFailedTasks(ctx context.Context, batchID int64) (Ack, error) {
	const op = "retry failed tasks"
	if batchID <= 0 {
		return nil, &CommandFailedError{Op: op, Err: errors.Errorf("batch id must be positive, got %d", batchID)}
	}
	ack, err := tc.client.RetryFailedTasks(ctx, batchID)
	if err != nil {
		return nil, &CommandFailedError{Op: op, Err: err}
	}
	log.Info().Int64("batch_id", batchID).Msg("retried failed batch tasks")
	tc.coordinator.RequestRefresh()
	return ack, nil
}
