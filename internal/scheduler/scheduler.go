package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/acem/internal/platform/config"
	"github.com/codeready-toolchain/acem/internal/runtime"
)

// Scheduler wires the beat producer, durable queue, and worker pool
// together, mirroring the teacher's pkg/queue WorkerPool lifecycle
// (RegisterSession/UnregisterSession generalized here to a fixed-size
// pool of scheduler workers rather than per-session workers).
type Scheduler struct {
	beat    *Beat
	queue   *Queue
	workers []*Worker
	log     *slog.Logger
}

// Config configures a Scheduler.
type Config struct {
	RedisURL    string
	Concurrency int
	Schedule    map[string]config.ScheduleEntry
}

// New builds a Scheduler: connects the durable queue, constructs the
// cron beat from entries, and pre-builds (but does not yet start) the
// worker pool.
func New(cfg Config, registry *runtime.Registry, publisher runtime.Publisher, log *slog.Logger) (*Scheduler, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	queue, err := NewQueue(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	beat, err := NewBeat(queue, cfg.Schedule, log)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	workers := make([]*Worker, cfg.Concurrency)
	for i := range workers {
		workers[i] = NewWorker(i, queue, registry, publisher, log)
	}

	return &Scheduler{beat: beat, queue: queue, workers: workers, log: log}, nil
}

// Start launches the beat producer and every worker in the pool.
func (s *Scheduler) Start(ctx context.Context) {
	s.beat.Start()
	for _, w := range s.workers {
		w.Start(ctx)
	}
	s.log.Info("scheduler: started", "workers", len(s.workers))
}

// Stop halts the beat producer, drains and stops every worker, then
// closes the queue connection.
func (s *Scheduler) Stop() {
	s.beat.Stop()
	for _, w := range s.workers {
		w.Stop()
	}
	if err := s.queue.Close(); err != nil {
		s.log.Error("scheduler: queue close failed", "error", err)
	}
	s.log.Info("scheduler: stopped")
}

// Health reports each worker's current status, keyed by worker id.
func (s *Scheduler) Health() map[int]WorkerStatus {
	out := make(map[int]WorkerStatus, len(s.workers))
	for _, w := range s.workers {
		out[w.id] = w.Health()
	}
	return out
}

// EnqueueNow enqueues agentName immediately, bypassing the cron
// trigger.
func (s *Scheduler) EnqueueNow(ctx context.Context, agentName string) error {
	return s.queue.Enqueue(ctx, agentName)
}
