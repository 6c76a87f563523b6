package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Task interface {
	Run(ctx context.Context) error
	Name() string
}

// Job 将Task适配成cron作业, 带超时、耗时日志和panic隔离
func Job(task Task, timeout time.Duration) cron.Job {
	return cron.FuncJob(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("scheduled task panicked", "task", task.Name(), "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		if err := task.Run(ctx); err != nil {
			slog.Error("scheduled task failed", "task", task.Name(), "elapsed", time.Since(start), "error", err)
			return
		}
		slog.Debug("scheduled task finished", "task", task.Name(), "elapsed", time.Since(start))
	})
}
