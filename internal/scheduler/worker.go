package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/acem/internal/runtime"
)

// WorkerStatus mirrors the teacher's pkg/queue/worker.go status enum.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
	WorkerStatusStopped WorkerStatus = "stopped"
)

var errQueueEmpty = errors.New("scheduler: queue empty")

// Worker pops tasks from the durable queue and executes the
// corresponding agent, honoring the per-agent-name lock and bounded
// retry policy. Run-loop shape (select on stopCh/ctx.Done()/default,
// sync.Once stop, WaitGroup) is grounded on the teacher's
// pkg/queue/worker.go.
type Worker struct {
	id        int
	queue     *Queue
	registry  *runtime.Registry
	publisher runtime.Publisher
	log       *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu     sync.Mutex
	status WorkerStatus
}

// NewWorker builds worker id, consuming from queue and dispatching
// through registry, publishing envelopes via publisher.
func NewWorker(id int, queue *Queue, registry *runtime.Registry, publisher runtime.Publisher, log *slog.Logger) *Worker {
	return &Worker{
		id:        id,
		queue:     queue,
		registry:  registry,
		publisher: publisher,
		log:       log.With("worker_id", id),
		stopCh:    make(chan struct{}),
		status:    WorkerStatusIdle,
	}
}

// Start launches the worker's run loop in a new goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the run loop to exit and waits for it to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.setStatus(WorkerStatusStopped)
}

// Health reports the worker's current status.
func (w *Worker) Health() WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Worker) setStatus(s WorkerStatus) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := w.pollAndProcess(ctx); err != nil {
			if errors.Is(err, errQueueEmpty) {
				continue // BRPOP already blocked for brpopPollPeriod
			}
			w.log.Error("scheduler worker: poll failed", "error", err)
			w.sleep(time.Second)
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-w.stopCh:
	}
}

func (w *Worker) pollAndProcess(ctx context.Context) error {
	task, err := w.queue.Pop(ctx)
	if err != nil {
		return err
	}
	if task == nil {
		return errQueueEmpty
	}

	locked, err := w.queue.AcquireLock(ctx, task.AgentName)
	if err != nil {
		return err
	}
	if !locked {
		// Another worker already has this agent name in flight;
		// requeue without counting it as an attempt.
		w.log.Info("scheduler worker: agent locked, requeueing", "agent_name", task.AgentName)
		return w.queue.push(ctx, *task)
	}
	defer func() {
		if err := w.queue.ReleaseLock(ctx, task.AgentName); err != nil {
			w.log.Error("scheduler worker: release lock failed", "agent_name", task.AgentName, "error", err)
		}
	}()

	w.setStatus(WorkerStatusWorking)
	defer w.setStatus(WorkerStatusIdle)

	w.execute(ctx, *task)
	return nil
}

func (w *Worker) execute(ctx context.Context, task Task) {
	agent, err := w.registry.Get(task.AgentName)
	if err != nil {
		// Unknown agent name is fatal and non-retryable: requeuing
		// would spin forever against a name that will never resolve.
		w.log.Error("scheduler worker: unknown agent, dropping task", "agent_name", task.AgentName, "task_id", task.ID)
		return
	}

	_, runErr := runtime.Execute(ctx, agent, w.publisher)
	if runErr == nil {
		return
	}

	if task.Attempt >= maxRetries {
		w.log.Error("scheduler worker: task exhausted retries", "agent_name", task.AgentName, "task_id", task.ID, "attempt", task.Attempt+1, "error", runErr)
		return
	}

	w.log.Warn("scheduler worker: task failed, requeueing", "agent_name", task.AgentName, "task_id", task.ID, "attempt", task.Attempt+1, "error", runErr)
	w.sleep(retryBaseDelay)
	if err := w.queue.Requeue(context.Background(), task); err != nil {
		w.log.Error("scheduler worker: requeue failed", "agent_name", task.AgentName, "task_id", task.ID, "error", err)
	}
}
