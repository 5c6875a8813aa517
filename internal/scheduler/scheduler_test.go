package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	return j.err
}

func (j *countingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestDailyAt_FiresOncePerLocalDay(t *testing.T) {
	plus2 := time.FixedZone("UTC+2", 2*60*60)
	trigger, err := scheduler.DailyAt("23:55", plus2)
	require.NoError(t, err)

	clock := &fakeClock{}
	job := &countingJob{}
	s := scheduler.New(job, trigger, scheduler.WithClock(clock.Now))
	ctx := context.Background()

	steps := []struct {
		utc   time.Time
		fired bool
	}{
		{time.Date(2024, 3, 10, 21, 54, 0, 0, time.UTC), false}, // 23:54 local
		{time.Date(2024, 3, 10, 21, 55, 0, 0, time.UTC), true},  // 23:55 local
		{time.Date(2024, 3, 10, 21, 58, 0, 0, time.UTC), false}, // same local day
		{time.Date(2024, 3, 10, 22, 30, 0, 0, time.UTC), false}, // 00:30 on the 11th, before the slot
		{time.Date(2024, 3, 11, 21, 56, 0, 0, time.UTC), true},
	}
	for i, step := range steps {
		clock.now = step.utc
		assert.Equal(t, step.fired, s.Tick(ctx), "step %d", i)
	}
	assert.Equal(t, 2, job.count())
	assert.Equal(t, "2024-03-11", s.LastFiredKey())
}

func TestDailyAt_InvalidTime(t *testing.T) {
	_, err := scheduler.DailyAt("25:99", time.UTC)
	assert.Error(t, err)
}

func TestEvery_FiresOncePerWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 30, 0, time.UTC)}
	job := &countingJob{}
	s := scheduler.New(job, scheduler.Every(15*time.Minute), scheduler.WithClock(clock.Now))
	ctx := context.Background()

	assert.True(t, s.Tick(ctx))
	clock.now = clock.now.Add(10 * time.Minute)
	assert.False(t, s.Tick(ctx))
	clock.now = clock.now.Add(5 * time.Minute)
	assert.True(t, s.Tick(ctx))
	assert.Equal(t, 2, job.count())
}

func TestTick_FailedRunIsNotRetriedInSamePeriod(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)}
	job := &countingJob{err: errors.New("provider down")}
	trigger, err := scheduler.DailyAt("00:00", time.UTC)
	require.NoError(t, err)
	s := scheduler.New(job, trigger, scheduler.WithClock(clock.Now))

	assert.True(t, s.Tick(context.Background()))
	assert.False(t, s.Tick(context.Background()))
	assert.Equal(t, 1, job.count())
}

func TestRunner_RejectsBadSpec(t *testing.T) {
	r := scheduler.NewRunner(slogDiscard())
	s := scheduler.New(&countingJob{}, scheduler.Every(time.Minute))

	assert.Error(t, r.Add("every now and then", s))
	assert.NoError(t, r.Add("@every 1m", s))
}
