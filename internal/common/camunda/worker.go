// internal/common/camunda/worker.go
package camunda

import (
	"context"

	"microfinance-scoring/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// HandlerFunc is the signature every scoring worker's Handle method has.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// StartWorker opens a job worker for taskType. It returns nil when the worker
// is disabled in configuration.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler HandlerFunc, log *zap.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return jw
}

// StopWorkers closes every open job worker and waits for in-flight jobs,
// bounded by ctx.
func StopWorkers(ctx context.Context, workers []worker.JobWorker, log *zap.Logger) {
	done := make(chan struct{})
	go func() {
		for _, w := range workers {
			if w == nil {
				continue
			}
			w.Close()
			w.AwaitClose()
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("all workers stopped")
	case <-ctx.Done():
		log.Warn("timed out waiting for workers to stop", zap.Error(ctx.Err()))
	}
}

// CompleteJob sends the output variables for a finished job.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return err
	}
	_, err = cmd.Send(ctx)
	return err
}
