package api

import (
	"context"
	"time"

	"github.com/okastrup/tagsync/app/database"
	"github.com/okastrup/tagsync/app/feed"
	"github.com/okastrup/tagsync/app/tasks"
)

type EnricherInterface interface {
	ExtendOne(ctx context.Context, item *database.Item, opts feed.Options) (*database.Item, error)
	ExtendAll(ctx context.Context, items []*database.Item, opts feed.Options) []*database.Item
}

var _ EnricherInterface = (*feed.Enricher)(nil)

type Handler struct {
	tagRepo   database.TagRepository
	itemRepo  database.ItemRepository
	enricher  EnricherInterface
	syncer    tasks.TagSyncer
	scheduler tasks.TaskSchedulerInterface
	startedAt time.Time
}
