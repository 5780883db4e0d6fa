package queue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/planvox/planvox-api/internal/platform/logger"
)

// listPageSize bounds how many queued jobs are fetched per inspection page.
const listPageSize = 100

// Inspector provides maintenance operations over queued speech jobs.
type Inspector struct {
	inspector *asynq.Inspector
	logger    *slog.Logger
}

// NewInspector creates an Inspector connected to the queue's Redis instance.
// If logger is nil, a default logger will be used.
func NewInspector(redisOpt asynq.RedisClientOpt, log *slog.Logger) *Inspector {
	if log == nil {
		log = slog.Default()
	}

	return &Inspector{
		inspector: asynq.NewInspector(redisOpt),
		logger:    log.With(slog.String("component", "queue_inspector")),
	}
}

// ClearSchemeJobs deletes every pending, scheduled, or retrying speech
// generation job belonging to the scheme. Jobs already running are left
// alone; the worker discards their results against deprecated tasks.
// Returns the number of jobs removed.
func (i *Inspector) ClearSchemeJobs(ctx context.Context, schemeID int64) (int, error) {
	log := logger.FromContextOrDefault(ctx, i.logger)

	listers := []func(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error){
		i.inspector.ListPendingTasks,
		i.inspector.ListScheduledTasks,
		i.inspector.ListRetryTasks,
	}

	removed := 0
	for _, list := range listers {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		jobs, err := listAll(list)
		if err != nil {
			// The queue only exists once a first job has been enqueued.
			if errors.Is(err, asynq.ErrQueueNotFound) {
				return removed, nil
			}
			log.Error("failed to list queued jobs",
				slog.String("error", err.Error()),
				slog.Int64("scheme_id", schemeID))
			return removed, err
		}

		for _, job := range jobs {
			if job.Type != TypeSpeechGenerate {
				continue
			}
			payload, err := ParseGenerationPayload(asynq.NewTask(job.Type, job.Payload))
			if err != nil {
				log.Warn("skipping job with unreadable payload",
					slog.String("job_id", job.ID),
					slog.String("error", err.Error()))
				continue
			}
			if payload.SchemeID != schemeID {
				continue
			}

			if err := i.inspector.DeleteTask(QueueSpeech, job.ID); err != nil {
				// The job may have started or finished between list and delete.
				if errors.Is(err, asynq.ErrTaskNotFound) {
					continue
				}
				log.Error("failed to delete queued job",
					slog.String("error", err.Error()),
					slog.String("job_id", job.ID))
				return removed, err
			}
			removed++
		}
	}

	if removed > 0 {
		log.Info("cleared queued jobs for scheme",
			slog.Int64("scheme_id", schemeID),
			slog.Int("removed", removed))
	}
	return removed, nil
}

// Close releases the queue connection.
func (i *Inspector) Close() error {
	return i.inspector.Close()
}

// listAll drains one queue state page by page.
func listAll(list func(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error)) ([]*asynq.TaskInfo, error) {
	var all []*asynq.TaskInfo
	for page := 1; ; page++ {
		jobs, err := list(QueueSpeech, asynq.PageSize(listPageSize), asynq.Page(page))
		if err != nil {
			return nil, err
		}
		all = append(all, jobs...)
		if len(jobs) < listPageSize {
			return all, nil
		}
	}
}
