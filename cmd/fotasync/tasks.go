package main

import (
	"context"

	"github.com/fleetops/fotasync"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Mutate remote task state (cancel, create, retry)",
	}
	cmd.AddCommand(
		newTasksCancelCmd(),
		newTasksBulkCancelCmd(),
		newTasksCancelPendingCmd(),
		newTasksCreateFirmwareCmd(),
		newTasksCreateConfigCmd(),
		newTasksRetryCmd(),
		newTasksBatchCmd(),
	)
	return cmd
}

// runTaskCommand wires a coordinator plus commands, runs the mutation, then
// refreshes once more synchronously so the process exits with a snapshot that
// reflects the change.
func runTaskCommand(ctx context.Context, mutate func(context.Context, *fotasync.TaskCommands) (fotasync.Ack, error)) error {
	client, coordinator, err := buildCoordinator(ctx, fotasync.Config{})
	if err != nil {
		return err
	}
	commands, err := fotasync.NewTaskCommands(client, coordinator)
	if err != nil {
		return err
	}
	if _, err := mutate(ctx, commands); err != nil {
		return err
	}
	snap, err := coordinator.Refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("post-command refresh failed; snapshot is stale")
		return nil
	}
	logSnapshot(snap)
	return nil
}

func newTasksCancelCmd() *cobra.Command {
	var flagTaskID int64
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a single task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskCommand(cmd.Context(), func(ctx context.Context, tc *fotasync.TaskCommands) (fotasync.Ack, error) {
				return tc.CancelTask(ctx, flagTaskID)
			})
		},
	}
	cmd.Flags().Int64Var(&flagTaskID, "id", 0, "Task id to cancel")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newTasksBulkCancelCmd() *cobra.Command {
	var flagTaskIDs []int64
	cmd := &cobra.Command{
		Use:   "bulk-cancel",
		Short: "Cancel several tasks in one call",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskCommand(cmd.Context(), func(ctx context.Context, tc *fotasync.TaskCommands) (fotasync.Ack, error) {
				return tc.CancelTasks(ctx, flagTaskIDs)
			})
		},
	}
	cmd.Flags().Int64SliceVar(&flagTaskIDs, "ids", nil, "Task ids to cancel (comma separated)")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

func newTasksCancelPendingCmd() *cobra.Command {
	var flagIMEI string
	cmd := &cobra.Command{
		Use:   "cancel-pending",
		Short: "Cancel every task queued on a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskCommand(cmd.Context(), func(ctx context.Context, tc *fotasync.TaskCommands) (fotasync.Ack, error) {
				return tc.CancelPendingTasks(ctx, flagIMEI)
			})
		},
	}
	cmd.Flags().StringVar(&flagIMEI, "imei", "", "Device IMEI")
	_ = cmd.MarkFlagRequired("imei")
	return cmd
}

func newTasksCreateFirmwareCmd() *cobra.Command {
	var (
		flagIMEI       string
		flagFirmwareID int64
	)
	cmd := &cobra.Command{
		Use:   "create-firmware",
		Short: "Queue a firmware update task for a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskCommand(cmd.Context(), func(ctx context.Context, tc *fotasync.TaskCommands) (fotasync.Ack, error) {
				return tc.CreateFirmwareTask(ctx, flagIMEI, flagFirmwareID)
			})
		},
	}
	cmd.Flags().StringVar(&flagIMEI, "imei", "", "Device IMEI")
	cmd.Flags().Int64Var(&flagFirmwareID, "firmware-id", 0, "Firmware id to install")
	_ = cmd.MarkFlagRequired("imei")
	_ = cmd.MarkFlagRequired("firmware-id")
	return cmd
}

func newTasksCreateConfigCmd() *cobra.Command {
	var (
		flagIMEI     string
		flagConfigID int64
	)
	cmd := &cobra.Command{
		Use:   "create-config",
		Short: "Queue a configuration update task for a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskCommand(cmd.Context(), func(ctx context.Context, tc *fotasync.TaskCommands) (fotasync.Ack, error) {
				return tc.CreateConfigTask(ctx, flagIMEI, flagConfigID)
			})
		},
	}
	cmd.Flags().StringVar(&flagIMEI, "imei", "", "Device IMEI")
	cmd.Flags().Int64Var(&flagConfigID, "config-id", 0, "Configuration id to apply")
	_ = cmd.MarkFlagRequired("imei")
	_ = cmd.MarkFlagRequired("config-id")
	return cmd
}

func newTasksBatchCmd() *cobra.Command {
	var flagBatchID int64
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Print the raw record of a task batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := buildClient()
			if err != nil {
				return err
			}
			body, err := client.GetBatch(cmd.Context(), flagBatchID)
			if err != nil {
				return err
			}
			log.Info().RawJSON("batch", body).Int64("batch_id", flagBatchID).Msg("batch record")
			return nil
		},
	}
	cmd.Flags().Int64Var(&flagBatchID, "batch-id", 0, "Batch id to fetch")
	_ = cmd.MarkFlagRequired("batch-id")
	return cmd
}

func newTasksRetryCmd() *cobra.Command {
	var flagBatchID int64
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Retry the failed tasks of a batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskCommand(cmd.Context(), func(ctx context.Context, tc *fotasync.TaskCommands) (fotasync.Ack, error) {
				return tc.RetryFailedTasks(ctx, flagBatchID)
			})
		},
	}
	cmd.Flags().Int64Var(&flagBatchID, "batch-id", 0, "Batch id whose failed tasks should be retried")
	_ = cmd.MarkFlagRequired("batch-id")
	return cmd
}
