package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/planvox/planvox-api/internal/config"
)

// maxBackoffShift caps the exponential retry backoff at base << 10.
const maxBackoffShift = 10

// NewServer builds the queue server that runs the speech generation handler.
// Rate limit rejections are retried without consuming attempts; real failures
// back off exponentially from cfg.RetryBaseDelay. errHandler observes every
// failed attempt, including the terminal one.
func NewServer(
	redisOpt asynq.RedisClientOpt,
	cfg config.QueueConfig,
	log *slog.Logger,
	errHandler asynq.ErrorHandler,
) *asynq.Server {
	if log == nil {
		log = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueSpeech: 1,
		},
		RetryDelayFunc: RetryDelay(cfg.RetryBaseDelay),
		IsFailure: func(err error) bool {
			return !IsRateLimitError(err)
		},
		ErrorHandler: errHandler,
		Logger:       newSlogAdapter(log),
	})
}

// RedisOpt builds the Redis connection options shared by the enqueuer,
// inspector, and server.
func RedisOpt(cfg config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	}
}

// RetryDelay doubles base on every failed attempt. Rate limit rejections
// instead wait exactly the interval the gate reported.
func RetryDelay(base time.Duration) func(n int, err error, task *asynq.Task) time.Duration {
	if base <= 0 {
		base = time.Second
	}

	return func(n int, err error, task *asynq.Task) time.Duration {
		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			return rateLimitErr.RetryIn
		}
		if n > maxBackoffShift {
			n = maxBackoffShift
		}
		return base << uint(n)
	}
}

// slogAdapter bridges the queue library's logging onto the application logger.
type slogAdapter struct {
	log *slog.Logger
}

func newSlogAdapter(log *slog.Logger) *slogAdapter {
	return &slogAdapter{log: log.With(slog.String("component", "queue_server"))}
}

func (a *slogAdapter) Debug(args ...interface{}) { a.log.Debug(fmt.Sprint(args...)) }
func (a *slogAdapter) Info(args ...interface{})  { a.log.Info(fmt.Sprint(args...)) }
func (a *slogAdapter) Warn(args ...interface{})  { a.log.Warn(fmt.Sprint(args...)) }
func (a *slogAdapter) Error(args ...interface{}) { a.log.Error(fmt.Sprint(args...)) }
func (a *slogAdapter) Fatal(args ...interface{}) { a.log.Error(fmt.Sprint(args...)) }
