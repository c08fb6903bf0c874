package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okastrup/tagsync/app/database"
)

type stubTagRepo struct {
	database.TagRepository
}

func (stubTagRepo) GetNotSyncedSince(cutoff time.Time) ([]database.Tag, error) {
	return nil, nil
}

// failingTask fails every execution so the scheduler schedules a retry.
type failingTask struct {
	Task
	executions atomic.Int32
	firstRun   chan struct{}
}

func newFailingTask() *failingTask {
	return &failingTask{
		Task:     NewTask(TaskTypeSyncTag, "doomed"),
		firstRun: make(chan struct{}),
	}
}

func (t *failingTask) Execute(ctx context.Context) error {
	if t.executions.Add(1) == 1 {
		close(t.firstRun)
	}
	return errors.New("transient failure")
}

func newTestScheduler() *Scheduler {
	s := &Scheduler{
		tagRepo:     stubTagRepo{},
		interval:    time.Hour,
		syncDelta:   time.Hour,
		cleanEvery:  time.Hour,
		workerCount: 1,
		taskQueue:   make(chan TaskInterface, 8),
		lastCleanAt: time.Now(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

func TestSchedulerStopWithPendingRetry(t *testing.T) {
	s := newTestScheduler()
	s.Start()

	task := newFailingTask()
	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("Expected enqueue to succeed, got %v", err)
	}

	select {
	case <-task.firstRun:
	case <-time.After(2 * time.Second):
		t.Fatal("Task was never executed")
	}

	// The failed execution arms a retry timer. Stop must wait for that
	// timer goroutine to observe cancellation before closing the queue;
	// otherwise the re-enqueue sends on a closed channel.
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a retry was pending")
	}

	if got := task.executions.Load(); got != 1 {
		t.Errorf("Expected exactly 1 execution before shutdown, got %d", got)
	}
}

func TestSchedulerEnqueueAfterStop(t *testing.T) {
	s := newTestScheduler()
	s.Start()
	s.Stop()

	if err := s.EnqueueTask(newFailingTask()); err == nil {
		t.Error("Expected enqueue after Stop to fail")
	}
}
