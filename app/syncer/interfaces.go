package syncer

import (
	"context"

	"github.com/okastrup/tagsync/app/database"
	"github.com/okastrup/tagsync/app/feed"
	"github.com/okastrup/tagsync/app/images"
	"github.com/okastrup/tagsync/app/upstream"
)

// QueueSource fetches the upstream node queue a tag mirrors.
type QueueSource interface {
	GetQueue(ctx context.Context, queueID int64) (*upstream.Queue, error)
}

// Enricher folds external content into an item.
type Enricher interface {
	ExtendOne(ctx context.Context, item *database.Item, opts feed.Options) (*database.Item, error)
}

// ImageUploader runs a source image through the transform service and
// rehosts the derivatives.
type ImageUploader interface {
	Ingest(ctx context.Context, sourceURL, category, pathID, fileName string) (map[string]images.Image, error)
}

// Notifier announces a finished sync pass to interested consumers.
type Notifier interface {
	TagChanged(ctx context.Context, tag *database.Tag) error
}

// ScratchCleaner removes aged temporary download files.
type ScratchCleaner interface {
	Clean() error
}
