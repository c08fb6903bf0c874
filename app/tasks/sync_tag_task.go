package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/okastrup/tagsync/app/database"
)

// TagSyncer runs one full sync pass for a tag.
type TagSyncer interface {
	SyncTag(ctx context.Context, tag *database.Tag) error
}

type SyncTagTask struct {
	Task
	TagID   string
	tagRepo database.TagRepository
	syncer  TagSyncer
}

func NewSyncTagTask(tagID, tagSlug string, tagRepo database.TagRepository, syncer TagSyncer) *SyncTagTask {
	return &SyncTagTask{
		Task:    NewTask(TaskTypeSyncTag, tagSlug),
		TagID:   tagID,
		tagRepo: tagRepo,
		syncer:  syncer,
	}
}

func (t *SyncTagTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Re-read the tag so the pass works from the current lock and hash
	// state, not from whatever the enqueueing side saw.
	tag, err := t.tagRepo.GetTag(t.TagID)
	if err != nil {
		return fmt.Errorf("failed to get tag: %w", err)
	}
	if tag == nil {
		slog.Debug("Tag no longer exists, skipping sync", "tag", t.TagSlug)
		return nil
	}

	if err := t.syncer.SyncTag(ctx, tag); err != nil {
		return fmt.Errorf("failed to sync tag: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncTag",
		"tag", tag.Slug,
		"duration", t.GetDuration())

	return nil
}
