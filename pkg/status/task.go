package status

import (
	"context"
	"log/slog"
	"time"
)

var StatusInterval = 30 * time.Second

type Task interface {
	Progress() Progress
	Status() string // what gets printed to the logger
}

// WatchTask periodically writes a task's status to the logger. It
// stops on its own once the task moves past the script-writing state.
func WatchTask(ctx context.Context, task Task, logger *slog.Logger) {
	go continuallyDumpStatus(ctx, task, logger)
}

func continuallyDumpStatus(ctx context.Context, task Task, logger *slog.Logger) {
	ticker := time.NewTicker(StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := task.Progress().CurrentState
			if state > WriteScripts {
				return
			}
			logger.Info(task.Status()) // call the task to write the status
		}
	}
}
