package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerService_RunsJobsOnSchedule(t *testing.T) {
	s := NewSchedulerService()
	var runs atomic.Int64
	require.NoError(t, s.AddJob(Job{
		Name: "tick",
		Spec: "* * * * * *",
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "tick", status[0].Name)
	assert.False(t, status[0].NextRun.IsZero())
}

func TestSchedulerService_RunNowRecordsErrors(t *testing.T) {
	s := NewSchedulerService()
	boom := errors.New("boom")
	require.NoError(t, s.AddJob(Job{Name: "sweep", Spec: "0 * * * * *", Run: func(context.Context) error { return boom }}))

	assert.ErrorIs(t, s.RunNow("sweep"), boom)
	assert.Error(t, s.RunNow("missing"))

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, 1, status[0].Runs)
	assert.Equal(t, "boom", status[0].LastError)
}

func TestSchedulerService_RejectsInvalidJobs(t *testing.T) {
	s := NewSchedulerService()
	assert.Error(t, s.AddJob(Job{Name: "bad", Spec: "every minute", Run: func(context.Context) error { return nil }}))
	assert.Error(t, s.AddJob(Job{Name: "", Spec: "0 * * * * *"}))
}

func TestSchedulerService_StopCancelsContext(t *testing.T) {
	s := NewSchedulerService()
	var sawCancel atomic.Bool
	require.NoError(t, s.AddJob(Job{Name: "wait", Spec: "0 0 0 1 1 *", Run: func(ctx context.Context) error {
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	}}))

	s.Start()
	done := make(chan struct{})
	go func() {
		_ = s.RunNow("wait")
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not observe cancellation")
	}
	assert.True(t, sawCancel.Load())
}
