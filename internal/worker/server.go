package worker

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/voicecheck/api/internal/config"
	"github.com/voicecheck/api/internal/model"
)

// QueueMaintenance carries housekeeping tasks
const QueueMaintenance = "maintenance"

// Runner owns the asynq server and scheduler for background maintenance
type Runner struct {
	redisOpt  asynq.RedisClientOpt
	logLevel  asynq.LogLevel
	interval  string
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

// NewRunner registers the sweep worker and validates the schedule. The asynq
// server and scheduler each hold a Redis connection, so both are created by
// Start once Redis is known to be reachable.
func NewRunner(cfg *config.Config, sweepWorker *SweepWorker) (*Runner, error) {
	if _, err := cron.ParseStandard(cfg.Sweep.Interval); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.Sweep.Interval, err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(model.TaskTypeScratchSweep, sweepWorker.ProcessTask)

	return &Runner{
		redisOpt: redisOpt,
		logLevel: asynqLogLevel(cfg.Server.LogLevel),
		interval: cfg.Sweep.Interval,
		mux:      mux,
	}, nil
}

// Start checks Redis, then runs the worker server and the periodic sweep
// in the background. On error nothing is left running.
func (r *Runner) Start() error {
	if err := r.ping(); err != nil {
		return err
	}

	srv := asynq.NewServer(r.redisOpt, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			QueueMaintenance: 1,
		},
		LogLevel: r.logLevel,
	})
	if err := srv.Start(r.mux); err != nil {
		return fmt.Errorf("asynq worker error: %w", err)
	}

	scheduler := asynq.NewScheduler(r.redisOpt, &asynq.SchedulerOpts{
		LogLevel: r.logLevel,
	})
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		return fmt.Errorf("asynq scheduler error: %w", err)
	}

	task, err := NewSweepTask(0)
	if err == nil {
		_, err = scheduler.Register(r.interval, task)
	}
	if err != nil {
		scheduler.Shutdown()
		srv.Shutdown()
		return fmt.Errorf("failed to register sweep schedule %q: %w", r.interval, err)
	}

	r.server = srv
	r.scheduler = scheduler
	log.Println("Scratch sweeper started")
	return nil
}

// Shutdown stops the scheduler and drains the worker server
func (r *Runner) Shutdown() {
	if r.scheduler != nil {
		r.scheduler.Shutdown()
		r.scheduler = nil
	}
	if r.server != nil {
		r.server.Shutdown()
		r.server = nil
	}
}

func (r *Runner) ping() error {
	client, ok := r.redisOpt.MakeRedisClient().(redis.UniversalClient)
	if !ok {
		return fmt.Errorf("unsupported redis client for %s", r.redisOpt.Addr)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unavailable for sweeper: %w", err)
	}
	return nil
}

func asynqLogLevel(level string) asynq.LogLevel {
	switch {
	case strings.EqualFold(level, "debug"):
		return asynq.DebugLevel
	case strings.EqualFold(level, "warn"):
		return asynq.WarnLevel
	case strings.EqualFold(level, "error"):
		return asynq.ErrorLevel
	default:
		return asynq.InfoLevel
	}
}
