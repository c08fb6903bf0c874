package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/okastrup/tagsync/app/database"
)

// ScratchCleaner removes aged temporary download files.
type ScratchCleaner interface {
	Clean() error
}

type CleanScratchTask struct {
	Task
	scratch  ScratchCleaner
	itemRepo database.ItemRepository
}

func NewCleanScratchTask(scratch ScratchCleaner, itemRepo database.ItemRepository) *CleanScratchTask {
	return &CleanScratchTask{
		Task:     NewTask(TaskTypeCleanScratch, ""),
		scratch:  scratch,
		itemRepo: itemRepo,
	}
}

func (t *CleanScratchTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.scratch.Clean(); err != nil {
		return fmt.Errorf("failed to clean scratch directory: %w", err)
	}

	// Items can lose their last tag when a tag is deleted outside a sync
	// pass; sweep them alongside the scratch files.
	removed, err := t.itemRepo.DeleteUntagged()
	if err != nil {
		return fmt.Errorf("failed to delete untagged items: %w", err)
	}

	slog.Info("Task completed",
		"type", "CleanScratch",
		"duration", t.GetDuration(),
		"untagged_removed", removed)

	return nil
}
