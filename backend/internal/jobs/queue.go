package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dndsim/combat-engine/backend/internal/config"
	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// JobType represents different types of background jobs.
type JobType string

const (
	// JobTypeSimulateEncounterBatch replays a recorded command script
	// against the engine for balance testing, off the request path.
	JobTypeSimulateEncounterBatch JobType = "encounter:simulate-batch"
	// JobTypeCleanupExpiredTokens prunes dead refresh tokens.
	JobTypeCleanupExpiredTokens JobType = "cleanup:expired-tokens"

	QueueDefault = "default"
	QueueLow     = "low"
)

// JobQueue manages background job processing over asynq.
type JobQueue struct {
	client   *asynq.Client
	server   *asynq.Server
	mux      *asynq.ServeMux
	logger   *logger.Logger
	handlers map[JobType]JobHandler
	mu       sync.RWMutex
}

// JobHandler processes a specific job type.
type JobHandler func(ctx context.Context, task *asynq.Task) error

// JobOptions contains options for enqueuing a job.
type JobOptions struct {
	MaxRetry  int
	Queue     string
	ProcessIn time.Duration
	UniqueFor time.Duration
}

// DefaultJobOptions returns default job options.
func DefaultJobOptions() JobOptions {
	return JobOptions{MaxRetry: 3, Queue: QueueDefault}
}

// NewJobQueue creates a job queue with the default worker concurrency.
func NewJobQueue(cfg *config.RedisConfig, log *logger.Logger) (*JobQueue, error) {
	return NewJobQueueWithConcurrency(cfg, log, 10)
}

// NewJobQueueWithConcurrency is NewJobQueue with an explicit worker
// count. Simulation-batch jobs each pin one EncounterState for their
// whole run, so the caller should pass
// config.Engine.MaxEncounterConcurrency here.
func NewJobQueueWithConcurrency(cfg *config.RedisConfig, log *logger.Logger, concurrency int) (*JobQueue, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	if concurrency <= 0 {
		concurrency = 10
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueDefault: 3,
			QueueLow:     1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			if log != nil {
				log.Error().
					Err(err).
					Str("task_type", task.Type()).
					Msg("Task processing failed")
			}
		}),
		RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
			return time.Duration(n*n) * time.Second
		},
		Logger: &asynqLogger{logger: log},
	})

	return &JobQueue{
		client:   asynq.NewClient(redisOpt),
		server:   server,
		mux:      asynq.NewServeMux(),
		logger:   log,
		handlers: make(map[JobType]JobHandler),
	}, nil
}

// RegisterHandler registers a handler for a job type.
func (jq *JobQueue) RegisterHandler(jobType JobType, handler JobHandler) {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	jq.handlers[jobType] = handler
	jq.mux.HandleFunc(string(jobType), func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		err := handler(ctx, task)
		if jq.logger != nil {
			event := jq.logger.Info().
				Str("job_type", string(jobType)).
				Dur("duration", time.Since(start))
			if err != nil {
				event.Err(err).Msg("Job failed")
			} else {
				event.Msg("Job completed")
			}
		}
		return err
	})
}

// Enqueue adds a job to the queue.
func (jq *JobQueue) Enqueue(ctx context.Context, jobType JobType, payload interface{}, opts ...JobOptions) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	opt := DefaultJobOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	var taskOpts []asynq.Option
	if opt.MaxRetry > 0 {
		taskOpts = append(taskOpts, asynq.MaxRetry(opt.MaxRetry))
	}
	if opt.Queue != "" {
		taskOpts = append(taskOpts, asynq.Queue(opt.Queue))
	}
	if opt.ProcessIn > 0 {
		taskOpts = append(taskOpts, asynq.ProcessIn(opt.ProcessIn))
	}
	if opt.UniqueFor > 0 {
		taskOpts = append(taskOpts, asynq.Unique(opt.UniqueFor))
	}

	info, err := jq.client.EnqueueContext(ctx, asynq.NewTask(string(jobType), data), taskOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	if jq.logger != nil {
		jq.logger.Info().
			Str("job_type", string(jobType)).
			Str("task_id", info.ID).
			Str("queue", info.Queue).
			Msg("Job enqueued")
	}
	return info, nil
}

// Start begins processing jobs.
func (jq *JobQueue) Start() error {
	return jq.server.Start(jq.mux)
}

// Stop gracefully stops the job processor.
func (jq *JobQueue) Stop() error {
	jq.server.Shutdown()
	return jq.client.Close()
}

// asynqLogger adapts our logger to asynq's logger interface.
type asynqLogger struct {
	logger *logger.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	if l.logger != nil {
		l.logger.Debug().Msg(fmt.Sprint(args...))
	}
}

func (l *asynqLogger) Info(args ...interface{}) {
	if l.logger != nil {
		l.logger.Info().Msg(fmt.Sprint(args...))
	}
}

func (l *asynqLogger) Warn(args ...interface{}) {
	if l.logger != nil {
		l.logger.Warn().Msg(fmt.Sprint(args...))
	}
}

func (l *asynqLogger) Error(args ...interface{}) {
	if l.logger != nil {
		l.logger.Error().Msg(fmt.Sprint(args...))
	}
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	if l.logger != nil {
		l.logger.Fatal().Msg(fmt.Sprint(args...))
	}
}
