package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/acem/internal/platform/config"
	pipelinestore "github.com/codeready-toolchain/acem/internal/store/pipeline"
)

type fakeRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRunner) Run(ctx context.Context) (pipelinestore.PipelineRunStats, error) {
	f.calls.Add(1)
	return pipelinestore.PipelineRunStats{}, f.err
}

func testLoopConfig() LoopConfig {
	st, _ := config.ParseScheduleTime("09:00")
	days, _ := config.ParseScheduleDays("*")
	return LoopConfig{
		ScheduleTime:  st,
		AllowedDays:   days,
		Location:      time.UTC,
		PollInterval:  time.Second,
		CatchupOnBoot: true,
	}
}

func TestLoopShouldTriggerAtOrAfterScheduleTime(t *testing.T) {
	runner := &fakeRunner{}
	loop := NewLoop(testLoopConfig(), runner, slog.Default())

	before := time.Date(2026, 7, 29, 8, 59, 0, 0, time.UTC)
	require.False(t, loop.shouldTrigger(before))

	atTime := time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC)
	require.True(t, loop.shouldTrigger(atTime))
}

func TestLoopDoesNotFireTwiceSameDay(t *testing.T) {
	runner := &fakeRunner{}
	loop := NewLoop(testLoopConfig(), runner, slog.Default())

	now := time.Date(2026, 7, 29, 9, 5, 0, 0, time.UTC)
	require.True(t, loop.shouldTrigger(now))

	loop.mu.Lock()
	loop.lastScheduledRunDate = now.Format("2006-01-02")
	loop.mu.Unlock()

	require.False(t, loop.shouldTrigger(now))

	nextDay := now.AddDate(0, 0, 1)
	require.True(t, loop.shouldTrigger(nextDay))
}

func TestLoopSkipsDisallowedWeekday(t *testing.T) {
	cfg := testLoopConfig()
	cfg.AllowedDays = map[int]bool{1: true} // Monday only
	loop := NewLoop(cfg, &fakeRunner{}, slog.Default())

	// 2026-07-29 is a Wednesday (ISO weekday 3).
	wednesday := time.Date(2026, 7, 29, 9, 30, 0, 0, time.UTC)
	require.False(t, loop.shouldTrigger(wednesday))
}

func TestLoopRunNowDoesNotTouchLastScheduledRunDate(t *testing.T) {
	runner := &fakeRunner{}
	loop := NewLoop(testLoopConfig(), runner, slog.Default())

	_, err := loop.RunNow(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, runner.calls.Load())
	require.Equal(t, "", loop.Status().LastScheduledRunDate)
}

func TestNewLoopMarksTodayFiredWhenBootAfterScheduleWithoutCatchup(t *testing.T) {
	cfg := testLoopConfig()
	cfg.CatchupOnBoot = false
	// Force "now" to be after schedule time by picking a schedule time
	// in the past relative to the real clock.
	cfg.ScheduleTime = config.ScheduleTime{Hour: 0, Minute: 0}

	loop := NewLoop(cfg, &fakeRunner{}, slog.Default())
	today := time.Now().In(time.UTC).Format("2006-01-02")
	require.Equal(t, today, loop.Status().LastScheduledRunDate)
}
