package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/codeready-toolchain/acem/internal/platform/config"
)

// Beat evaluates configured schedule entries on their cron triggers
// and enqueues a task per firing. Grounded on
// emergent-company-emergent's domain/scheduler/scheduler.go *cron.Cron
// wrapper (remove-then-add registration, Start/Stop lifecycle).
type Beat struct {
	cron   *cron.Cron
	queue  *Queue
	log    *slog.Logger
	ids    map[string]cron.EntryID
}

// NewBeat builds a beat producer from schedule entries, each mapped
// to a cron job that enqueues the agent named by entry.Args[0] on the
// durable queue.
func NewBeat(queue *Queue, entries map[string]config.ScheduleEntry, log *slog.Logger) (*Beat, error) {
	b := &Beat{
		cron:  cron.New(cron.WithSeconds()),
		queue: queue,
		log:   log,
		ids:   make(map[string]cron.EntryID),
	}
	for name, entry := range entries {
		if err := b.addEntry(name, entry); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Beat) addEntry(name string, entry config.ScheduleEntry) error {
	// Remove-then-add mirrors the teacher's AddCronTask idempotency:
	// reconfiguring an already-registered schedule name replaces it.
	if id, ok := b.ids[name]; ok {
		b.cron.Remove(id)
		delete(b.ids, name)
	}

	var agentName string
	if len(entry.Args) > 0 {
		agentName = entry.Args[0]
	}
	id, err := b.cron.AddFunc(entry.Trigger, func() {
		ctx := context.Background()
		if err := b.queue.Enqueue(ctx, agentName); err != nil {
			b.log.Error("beat: enqueue failed", "schedule", name, "agent_name", agentName, "error", err)
			return
		}
		b.log.Info("beat: enqueued task", "schedule", name, "agent_name", agentName)
	})
	if err != nil {
		return fmt.Errorf("scheduler beat: add entry %q: %w", name, err)
	}
	b.ids[name] = id
	return nil
}

// Start runs the cron scheduler in its own goroutine.
func (b *Beat) Start() { b.cron.Start() }

// Stop halts the cron scheduler and returns a context that is done once
// any running job completes; it does not itself wait.
func (b *Beat) Stop() context.Context { return b.cron.Stop() }
