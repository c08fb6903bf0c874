package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/okastrup/tagsync/app/cfg"
	"github.com/okastrup/tagsync/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	tagRepo     database.TagRepository
	itemRepo    database.ItemRepository
	syncer      TagSyncer
	scratch     ScratchCleaner
	interval    time.Duration
	syncDelta   time.Duration
	cleanEvery  time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu          sync.Mutex
	lastCleanAt time.Time
}

func NewScheduler(tagRepo database.TagRepository, itemRepo database.ItemRepository,
	syncer TagSyncer, scratch ScratchCleaner) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		tagRepo:     tagRepo,
		itemRepo:    itemRepo,
		syncer:      syncer,
		scratch:     scratch,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		syncDelta:   time.Duration(cfg.SyncDelta) * time.Second,
		cleanEvery:  time.Duration(cfg.ScratchMaxAge) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

// Stop cancels the scheduler context and waits for the ticker, the workers
// and any pending retry timers to drain. The task queue is never closed;
// senders are fenced by the context instead.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueTasks() {
	now := time.Now().UTC()

	tags, err := s.tagRepo.GetNotSyncedSince(now.Add(-s.syncDelta))
	if err != nil {
		slog.Warn("Failed to get tags due for sync", "error", err)
		return
	}

	if len(tags) > 0 {
		slog.Debug("Tags due for sync", "count", len(tags))
	}

	for _, tag := range tags {
		task := NewSyncTagTask(tag.ID, tag.Slug, s.tagRepo, s.syncer)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue SyncTagTask", "tag", tag.Slug, "error", err)
		}
	}

	s.mu.Lock()
	cleanDue := now.Sub(s.lastCleanAt) >= s.cleanEvery
	if cleanDue {
		s.lastCleanAt = now
	}
	s.mu.Unlock()

	if cleanDue && s.scratch != nil {
		task := NewCleanScratchTask(s.scratch, s.itemRepo)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue CleanScratchTask", "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "tag", task.GetTagSlug(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// The retry timer joins the WaitGroup so Stop cannot close the
			// queue underneath a pending re-enqueue.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				timer := time.NewTimer(retryDelay)
				defer timer.Stop()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-timer.C:
				}

				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
