package syncer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okastrup/tagsync/app/config"
	"github.com/okastrup/tagsync/app/database"
	"github.com/okastrup/tagsync/app/feed"
	"github.com/okastrup/tagsync/app/images"
	"github.com/okastrup/tagsync/app/upstream"
)

// Syncer reconciles tags with their upstream node queues: it plans a
// change-set per tag, applies it, refreshes derived tag metadata and images,
// and removes items that fell out of the queue.
type Syncer struct {
	tags     database.TagRepository
	items    database.ItemRepository
	queues   QueueSource
	enricher Enricher
	uploader ImageUploader
	scratch  ScratchCleaner
	notifier Notifier

	cleanupDelta time.Duration
	concurrency  int
}

func NewSyncer(
	tags database.TagRepository,
	items database.ItemRepository,
	queues QueueSource,
	enricher Enricher,
	uploader ImageUploader,
	scratch ScratchCleaner,
	notifier Notifier,
	cleanupDelta time.Duration,
	concurrency int,
) *Syncer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Syncer{
		tags:         tags,
		items:        items,
		queues:       queues,
		enricher:     enricher,
		uploader:     uploader,
		scratch:      scratch,
		notifier:     notifier,
		cleanupDelta: cleanupDelta,
		concurrency:  concurrency,
	}
}

// SyncTag runs one full sync pass for the tag. A pass that finds another
// pass in progress returns nil: either the lock holder is still working, or
// its lock went stale and is cleared so the next scheduled pass can proceed.
func (s *Syncer) SyncTag(ctx context.Context, tag *database.Tag) error {
	logger := slog.With("tag", tag.Slug, "tag_id", tag.ID)

	if tag.QueueID == nil {
		logger.Debug("Tag has no upstream queue, skipping sync")
		return nil
	}

	passStamp := time.Now().UTC()

	if tag.SyncInProgress {
		cleared, err := s.tags.ClearStaleSyncLock(tag.ID, passStamp.Add(-s.cleanupDelta))
		if err != nil {
			return fmt.Errorf("failed to clear stale sync lock: %w", err)
		}
		if cleared {
			logger.Warn("Cleared stale sync lock", "started_at", tag.SyncStarted)
		} else {
			logger.Debug("Sync already in progress, skipping")
		}
		return nil
	}

	acquired, err := s.tags.AcquireSyncLock(tag.ID, passStamp)
	if err != nil {
		return fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		logger.Debug("Sync already in progress, skipping")
		return nil
	}

	finished := false
	defer func() {
		if !finished {
			if err := s.tags.ReleaseSyncLock(tag.ID); err != nil {
				logger.Error("Failed to release sync lock", "error", err)
			}
		}
	}()

	queue, err := s.queues.GetQueue(ctx, *tag.QueueID)
	if err != nil {
		return fmt.Errorf("failed to fetch queue %d: %w", *tag.QueueID, err)
	}

	hash := fingerprint(queue.Raw)
	if hash == tag.QueueHash && tag.HasDerivatives() {
		logger.Debug("Queue unchanged, nothing to sync")
		if err := s.tags.FinishSync(tag, passStamp); err != nil {
			return fmt.Errorf("failed to finish sync: %w", err)
		}
		finished = true
		return nil
	}

	localByNode := make(map[int64]*database.Item, len(queue.Nodes))
	for _, node := range queue.Nodes {
		item, err := s.items.GetItemByNodeID(node.ID)
		if err != nil {
			return err
		}
		if item != nil {
			localByNode[node.ID] = item
		}
	}

	changes := Diff(queue.Nodes, localByNode)
	counts := countActions(changes)
	logger.Info("Planned sync pass",
		"nodes", len(queue.Nodes),
		"create", counts[ActionCreate],
		"update", counts[ActionUpdate],
		"delete", counts[ActionDelete],
		"skip", counts[ActionSkip])

	// Changes are independent of each other; a single failed node must not
	// take the whole pass down.
	g := &errgroup.Group{}
	g.SetLimit(s.concurrency)
	for _, change := range changes {
		g.Go(func() error {
			if err := s.applyChange(ctx, tag, change, passStamp); err != nil {
				logger.Warn("Failed to apply change",
					"action", change.Action.String(),
					"node_id", change.Node.ID,
					"error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	tag.QueueHash = hash
	tag.Name = ConvertQueueTitle(queue.Title)
	tag.Slug = Sluggify(tag.Name)

	firstItem, err := s.items.GetFirstByTag(tag.ID)
	if err != nil {
		return err
	}

	if tag.ImageStrategy == database.ImageStrategyArticle && firstItem != nil {
		tag.Description = firstItem.Title
	} else {
		tag.Description = tag.Name
	}

	if err := s.syncTagImage(ctx, tag, firstItem); err != nil {
		logger.Warn("Failed to sync tag image", "error", err)
	}

	s.cleanup(logger, tag, passStamp)

	if err := s.tags.FinishSync(tag, passStamp); err != nil {
		return fmt.Errorf("failed to finish sync: %w", err)
	}
	finished = true

	if s.notifier != nil {
		if err := s.notifier.TagChanged(ctx, tag); err != nil {
			logger.Warn("Failed to publish sync notification", "error", err)
		}
	}

	logger.Info("Sync pass finished", "duration", time.Since(passStamp).Round(time.Millisecond))
	return nil
}

func (s *Syncer) applyChange(ctx context.Context, tag *database.Tag, change Change, passStamp time.Time) error {
	switch change.Action {
	case ActionCreate:
		item := s.itemFromNode(change.Node, passStamp)
		if err := s.items.CreateItem(item); err != nil {
			return err
		}
		if err := s.items.SetTag(item.ID, tag.ID, change.Priority); err != nil {
			return err
		}
		return s.syncItem(ctx, item)
	case ActionUpdate:
		item := change.Item
		if err := s.items.SetTag(item.ID, tag.ID, change.Priority); err != nil {
			return err
		}
		item.Synced = &passStamp
		if err := s.items.UpdateItem(item); err != nil {
			return err
		}
		return s.syncItem(ctx, item)
	case ActionDelete:
		return s.items.DeleteItem(change.Item.ID)
	default:
		return nil
	}
}

func (s *Syncer) itemFromNode(node upstream.Node, passStamp time.Time) *database.Item {
	nodeID := node.ID
	slug := Sluggify(node.Title)
	if slug == "" {
		slug = fmt.Sprintf("node-%d", node.ID)
	}
	item := &database.Item{
		Slug:     slug,
		NodeID:   &nodeID,
		TypeSlug: feed.TypeGraphArticle,
		Title:    node.Title,
		Synced:   &passStamp,
	}
	if node.Published() {
		publishedAt := node.DateCreated
		item.PublishedAt = &publishedAt
	}
	return item
}

// syncItem pulls the full upstream record for the item, persists it and
// refreshes its image derivatives. The cache is bypassed: a sync pass always
// works from the source of truth.
func (s *Syncer) syncItem(ctx context.Context, item *database.Item) error {
	extended, err := s.enricher.ExtendOne(ctx, item, feed.Options{SkipCache: true, IncludeBody: true})
	if err != nil {
		return err
	}
	if err := s.items.UpdateItem(extended); err != nil {
		return err
	}
	return s.syncItemImages(ctx, extended)
}

func (s *Syncer) syncItemImages(ctx context.Context, item *database.Item) error {
	if s.uploader == nil {
		return nil
	}

	var mainChanged, authorChanged bool
	var g errgroup.Group

	g.Go(func() error {
		img := &item.Image
		if img.Source == "" {
			return nil
		}
		// Same source as last pass with derivatives in place: the transform
		// service has nothing new to say.
		if img.Source == img.SourcePrev && len(img.Derivatives) > 0 {
			return nil
		}
		variants, err := s.uploader.Ingest(ctx, img.Source, config.CategoryArticleImages, item.ID, img.FileName)
		if err != nil || variants == nil {
			return err
		}
		img.Derivatives = derivativeSet(variants)
		img.SourcePrev = img.Source
		now := time.Now().UTC()
		img.CachedAt = &now
		mainChanged = true
		return nil
	})

	g.Go(func() error {
		author := &item.Author
		if author.Image == "" || len(author.Picture) > 0 {
			return nil
		}
		pathID := Sluggify(author.Name)
		if pathID == "" {
			pathID = item.ID
		}
		variants, err := s.uploader.Ingest(ctx, author.Image, config.CategoryAuthorImages, pathID, "")
		if err != nil || variants == nil {
			return err
		}
		author.Picture = derivativeSet(variants)
		now := time.Now().UTC()
		author.CachedAt = &now
		authorChanged = true
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if mainChanged || authorChanged {
		return s.items.UpdateItem(item)
	}
	return nil
}

// syncTagImage refreshes the tag's hero image derivatives according to its
// strategy. Failures here degrade the tag's presentation, not its content,
// so the caller only logs them.
func (s *Syncer) syncTagImage(ctx context.Context, tag *database.Tag, firstItem *database.Item) error {
	if s.uploader == nil {
		return nil
	}

	switch tag.ImageStrategy {
	case database.ImageStrategyArticle:
		sourceURL := tag.Image.Source
		fromItem := false
		if firstItem != nil && firstItem.Image.Source != "" {
			sourceURL = firstItem.Image.Source
			fromItem = true
		}
		if sourceURL == "" {
			return nil
		}
		if len(tag.Image.Variants[database.ImageStrategyArticle]) > 0 {
			// Regenerate only when the item at the top of the queue changed.
			if !fromItem || firstItem.ID == tag.FirstItem {
				return nil
			}
		}
		variants, err := s.uploader.Ingest(ctx, sourceURL, config.CategoryTagImages, tag.ID, images.FileBase(sourceURL))
		if err != nil || variants == nil {
			return err
		}
		s.setTagVariants(tag, database.ImageStrategyArticle, variants)
		if fromItem {
			tag.FirstItem = firstItem.ID
		}
	default:
		if tag.Image.Source == "" || len(tag.Image.Variants[database.ImageStrategyDefault]) > 0 {
			return nil
		}
		variants, err := s.uploader.Ingest(ctx, tag.Image.Source, config.CategoryTagImages, tag.ID, images.FileBase(tag.Image.Source))
		if err != nil || variants == nil {
			return err
		}
		s.setTagVariants(tag, database.ImageStrategyDefault, variants)
	}
	return nil
}

func (s *Syncer) setTagVariants(tag *database.Tag, strategy string, variants map[string]images.Image) {
	if tag.Image.Variants == nil {
		tag.Image.Variants = make(map[string]database.DerivativeSet)
	}
	tag.Image.Variants[strategy] = derivativeSet(variants)
	now := time.Now().UTC()
	tag.Image.CachedAt = &now
}

// cleanup removes items the pass did not touch and sweeps aged scratch
// files. Both are best effort.
func (s *Syncer) cleanup(logger *slog.Logger, tag *database.Tag, passStamp time.Time) {
	var g errgroup.Group

	g.Go(func() error {
		deleted, err := s.items.DeleteStale(tag.ID, passStamp)
		if err != nil {
			return fmt.Errorf("failed to delete stale items: %w", err)
		}
		untagged, err := s.items.UntagStale(tag.ID, passStamp)
		if err != nil {
			return fmt.Errorf("failed to untag stale items: %w", err)
		}
		if deleted+untagged > 0 {
			logger.Info("Removed stale items", "deleted", deleted, "untagged", untagged)
		}
		return nil
	})

	g.Go(func() error {
		if s.scratch == nil {
			return nil
		}
		return s.scratch.Clean()
	})

	if err := g.Wait(); err != nil {
		logger.Warn("Cleanup after sync failed", "error", err)
	}
}

func derivativeSet(variants map[string]images.Image) database.DerivativeSet {
	set := make(database.DerivativeSet, len(variants))
	for name, variant := range variants {
		set[name] = database.Derivative{
			Width:  variant.Width,
			Height: variant.Height,
			URL:    variant.URL,
		}
	}
	return set
}

func fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func countActions(changes []Change) map[Action]int {
	counts := make(map[Action]int, 4)
	for _, change := range changes {
		counts[change.Action]++
	}
	return counts
}
