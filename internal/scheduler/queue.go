// Package scheduler implements the cron-scheduled dispatcher of
// spec.md §4.D: a beat producer evaluates triggers and enqueues
// tasks; worker consumers pop tasks from a durable Redis-backed queue
// and execute them with bounded retries and per-agent-name
// at-most-one-in-flight locking.
//
// Grounded on emergent-company-emergent's
// apps/server-go/domain/scheduler/scheduler.go (cron.Cron wrapper)
// and the teacher's pkg/queue/worker.go / pkg/queue/pool.go (worker
// run-loop shape, WorkerPool lifecycle). The durable queue and
// per-agent lock use go-redis/redis/v8, grounded on
// itsneelabh-gomind's Redis usage.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	queueKey        = "acem:scheduler:queue"
	lockKeyPrefix   = "acem:scheduler:lock:agent:"
	maxRetries      = 3
	retryBaseDelay  = 5 * time.Second
	lockTTL         = 10 * time.Minute
	brpopPollPeriod = 2 * time.Second
)

// Task is the durable queue envelope. ID is preserved across
// requeues so retry count is bounded (spec.md §4.D retry policy).
type Task struct {
	ID         string    `json:"id"`
	AgentName  string    `json:"agent_name"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempt    int       `json:"attempt"`
}

// Queue is a Redis-list-backed durable task queue plus per-agent-name
// locks. Both live in Redis: the queue is durable, and a lock persists
// across a process restart until it is released or lockTTL expires.
type Queue struct {
	client *redis.Client
}

// NewQueue connects to redisURL.
func NewQueue(redisURL string) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("scheduler queue: parse redis url: %w", err)
	}
	return &Queue{client: redis.NewClient(opt)}, nil
}

// Close releases the Redis client.
func (q *Queue) Close() error { return q.client.Close() }

// Enqueue pushes a new task for agentName, generating a fresh task id.
func (q *Queue) Enqueue(ctx context.Context, agentName string) error {
	return q.push(ctx, Task{
		ID:         uuid.NewString(),
		AgentName:  agentName,
		EnqueuedAt: time.Now().UTC(),
		Attempt:    0,
	})
}

// Requeue re-enqueues task with its attempt counter incremented,
// preserving its original ID so the retry count stays bounded.
func (q *Queue) Requeue(ctx context.Context, task Task) error {
	task.Attempt++
	return q.push(ctx, task)
}

func (q *Queue) push(ctx context.Context, task Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("scheduler queue: marshal task: %w", err)
	}
	return q.client.LPush(ctx, queueKey, raw).Err()
}

// Pop blocks (up to brpopPollPeriod) waiting for a task. A nil, nil
// return means the poll period elapsed with no task -- callers loop
// and check for shutdown between calls, as the teacher's worker
// run-loop does between polls.
func (q *Queue) Pop(ctx context.Context) (*Task, error) {
	result, err := q.client.BRPop(ctx, brpopPollPeriod, queueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("scheduler queue: unexpected BRPOP result shape")
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("scheduler queue: unmarshal task: %w", err)
	}
	return &task, nil
}

// AcquireLock attempts the per-agent-name at-most-one-in-flight lock
// (spec.md §4.D): a Redis SET NX with lockTTL (10 minutes). A lock
// left by a process that stopped mid-run keeps that agent name locked
// until lockTTL expires.
func (q *Queue) AcquireLock(ctx context.Context, agentName string) (bool, error) {
	return q.client.SetNX(ctx, lockKeyPrefix+agentName, "1", lockTTL).Result()
}

// ReleaseLock releases the per-agent-name lock; called in a defer
// immediately surrounding execution.
func (q *Queue) ReleaseLock(ctx context.Context, agentName string) error {
	return q.client.Del(ctx, lockKeyPrefix+agentName).Err()
}
