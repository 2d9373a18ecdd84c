// internal/common/camunda/runner.go
package camunda

import (
	"context"
	"time"

	"microfinance-scoring/internal/common/errors"
	"microfinance-scoring/internal/common/logger"
	"microfinance-scoring/internal/common/metrics"
	"microfinance-scoring/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ProcessFunc turns raw job variables into the output variables of the job.
type ProcessFunc func(ctx context.Context, variables string) (interface{}, error)

type jobKeyCtx struct{}

// WithJobKey returns ctx carrying the key of the job being processed. Zeebe
// keeps the key across retries of the same job.
func WithJobKey(ctx context.Context, key int64) context.Context {
	return context.WithValue(ctx, jobKeyCtx{}, key)
}

// JobKey reports the key of the job being processed, if ctx carries one.
func JobKey(ctx context.Context) (int64, bool) {
	key, ok := ctx.Value(jobKeyCtx{}).(int64)
	return key, ok
}

// JobRunner drives one job: deadline, span, completion or failure, metrics.
type JobRunner struct {
	TaskType string
	Timeout  time.Duration
	Errors   *errors.ErrorHandler
	Obs      *observability.Observability
	Logger   logger.Logger
}

func NewJobRunner(taskType string, timeout time.Duration, obs *observability.Observability, log logger.Logger) *JobRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	return &JobRunner{
		TaskType: taskType,
		Timeout:  timeout,
		Errors:   errors.NewErrorHandler(log),
		Obs:      obs,
		Logger:   log,
	}
}

func (r *JobRunner) Run(client worker.JobClient, job entities.Job, process ProcessFunc) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(WithJobKey(context.Background(), job.Key), r.Timeout)
	defer cancel()

	ctx, span := r.Obs.StartSpan(ctx, "job."+r.TaskType,
		attribute.Int64("job.key", job.Key),
		attribute.Int64("process.instance", job.ProcessInstanceKey),
	)
	defer span.End()

	r.Logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	output, err := process(ctx, job.Variables)
	if err != nil {
		stdErr := errors.Normalize(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(stdErr.Code))
		metrics.WorkerJobsFailed.WithLabelValues(r.TaskType, string(stdErr.Code)).Inc()
		r.Obs.RecordJobProcessed(ctx, r.TaskType, "failed")
		r.Errors.HandleJobError(ctx, client, job, stdErr)
		return
	}

	if err := CompleteJob(ctx, client, job, output); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(r.TaskType, "COMPLETE_FAILED").Inc()
		r.Logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	elapsed := time.Since(start)
	metrics.WorkerJobsCompleted.WithLabelValues(r.TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(r.TaskType).Observe(elapsed.Seconds())
	r.Obs.RecordJobProcessed(ctx, r.TaskType, "completed")
	r.Obs.RecordJobDuration(ctx, r.TaskType, elapsed, "completed")
	r.Logger.Info("job completed", map[string]interface{}{
		"jobKey":     job.Key,
		"durationMs": elapsed.Milliseconds(),
	})
}
