package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/okastrup/tagsync/app/cache"
	"github.com/okastrup/tagsync/app/database"
)

// sourceEntry binds a content type to its source plus the cache policy for
// fetched payloads.
type sourceEntry struct {
	source     Source
	keyPattern string
	ttl        time.Duration
}

// Enricher loads external content for items and folds it into the persisted
// record. Fetches go through the cache layer unless the caller opts out.
type Enricher struct {
	cache     *cache.Cache
	sources   map[string]sourceEntry
	sanitizer *bluemonday.Policy
}

func NewEnricher(c *cache.Cache, graph *GraphSource, rss *RSSSource) *Enricher {
	return &Enricher{
		cache: c,
		sources: map[string]sourceEntry{
			TypeGraphArticle: {source: graph, keyPattern: "feed:graph:node:%s", ttl: 2 * time.Minute},
			TypeRSSArticle:   {source: rss, keyPattern: "feed:rss:entry:%s", ttl: 5 * time.Minute},
		},
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// ExtendOne loads the external content for a single item and applies it.
// Items with a type no source is registered for are returned untouched.
// A nil content result means the upstream record is gone or unpublished;
// the item is returned as-is and the caller decides what to do with it.
func (e *Enricher) ExtendOne(ctx context.Context, item *database.Item, opts Options) (*database.Item, error) {
	entry, ok := e.sources[item.TypeSlug]
	if !ok {
		return item, nil
	}

	content, err := e.load(ctx, entry, item, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to extend item %s: %w", item.ID, err)
	}
	if content == nil {
		return item, nil
	}

	e.populate(item, content, opts)
	return item, nil
}

// ExtendAll extends a batch of items in place. Failures are logged per item
// and do not abort the batch.
func (e *Enricher) ExtendAll(ctx context.Context, items []*database.Item, opts Options) []*database.Item {
	for _, item := range items {
		if _, err := e.ExtendOne(ctx, item, opts); err != nil {
			slog.Warn("Failed to extend item", "item_id", item.ID, "error", err)
		}
	}
	return items
}

func (e *Enricher) load(ctx context.Context, entry sourceEntry, item *database.Item, opts Options) (*Content, error) {
	if opts.SkipCache || e.cache == nil {
		return entry.source.Fetch(ctx, item)
	}

	key := fmt.Sprintf(entry.keyPattern, item.ID)
	data, err := e.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		content, err := entry.source.Fetch(ctx, item)
		if err != nil {
			return nil, err
		}
		return json.Marshal(content)
	}, entry.ttl)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var content *Content
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("failed to decode cached content: %w", err)
	}
	return content, nil
}

// populate copies the fetched content onto the item. The previous image
// source is kept around so the upload path can tell a changed image from a
// re-sync of the same one.
func (e *Enricher) populate(item *database.Item, content *Content, opts Options) {
	if item.NodeID == nil && content.NodeID != 0 {
		nodeID := content.NodeID
		item.NodeID = &nodeID
	}

	item.Title = content.Title
	item.Supertitle = content.Supertitle
	item.Description = content.Summary
	if content.Website != "" {
		item.Website = content.Website
	}

	if opts.IncludeBody && content.Body != "" {
		item.Body = e.sanitizer.Sanitize(content.Body)
	}

	if author := content.Author; author != nil {
		item.Author.Name = author.Name
		item.Author.Email = author.Email
		item.Author.Image = author.Image
		item.Author.ProfileName = author.ProfileName
		item.Author.ProfileEmail = author.ProfileEmail
		item.Author.TwitterProfileID = author.TwitterProfileID
		item.Author.FacebookProfileID = author.FacebookProfileID
		item.Author.InstagramProfileID = author.InstagramProfileID
	}

	if image := content.Image; image != nil && image.URL != "" {
		if image.URL != item.Image.Source {
			item.Image.SourcePrev = item.Image.Source
			item.Image.Source = image.URL
		}
		item.Image.Title = image.Title
		item.Image.Photographer = image.Photographer
		item.Image.FileName = image.FileName
		item.Image.MimeType = image.MimeType
		item.Image.Size = image.Size
		item.Image.Width = image.Width
		item.Image.Height = image.Height
	}

	if content.Published && !content.CreatedAt.IsZero() {
		createdAt := content.CreatedAt
		item.PublishedAt = &createdAt
	}
}
