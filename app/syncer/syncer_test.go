package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okastrup/tagsync/app/database"
	"github.com/okastrup/tagsync/app/feed"
	"github.com/okastrup/tagsync/app/images"
	"github.com/okastrup/tagsync/app/upstream"
)

// fakeTagRepo records lock and finish operations. Unimplemented interface
// methods panic, which doubles as an assertion that a path never touches
// them.
type fakeTagRepo struct {
	database.TagRepository

	mu             sync.Mutex
	acquireResult  bool
	acquireCalled  bool
	acquireStarted time.Time
	releaseCalled  bool
	clearResult    bool
	clearCalled    bool
	clearCutoff    time.Time
	finishedTag    *database.Tag
	finishedAt     time.Time
}

func (f *fakeTagRepo) AcquireSyncLock(tagID string, startedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquireCalled = true
	f.acquireStarted = startedAt
	return f.acquireResult, nil
}

func (f *fakeTagRepo) ReleaseSyncLock(tagID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalled = true
	return nil
}

func (f *fakeTagRepo) ClearStaleSyncLock(tagID string, startedBefore time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalled = true
	f.clearCutoff = startedBefore
	return f.clearResult, nil
}

func (f *fakeTagRepo) FinishSync(tag *database.Tag, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishedTag = tag
	f.finishedAt = syncedAt
	tag.Synced = &syncedAt
	tag.SyncInProgress = false
	return nil
}

type fakeItemRepo struct {
	database.ItemRepository

	mu        sync.Mutex
	nextID    int
	byNode    map[int64]*database.Item
	created   []*database.Item
	updated   []*database.Item
	deleted   []string
	tagged    map[string]int
	firstItem *database.Item
	stale     int64
	untagged  int64
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{
		byNode: make(map[int64]*database.Item),
		tagged: make(map[string]int),
	}
}

func (f *fakeItemRepo) GetItemByNodeID(nodeID int64) (*database.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byNode[nodeID], nil
}

func (f *fakeItemRepo) CreateItem(item *database.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item.ID = itemID(f.nextID)
	f.created = append(f.created, item)
	return nil
}

func (f *fakeItemRepo) UpdateItem(item *database.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, item)
	return nil
}

func (f *fakeItemRepo) DeleteItem(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeItemRepo) SetTag(itemID, tagID string, priority int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagged[itemID] = priority
	return nil
}

func (f *fakeItemRepo) GetFirstByTag(tagID string) (*database.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.firstItem, nil
}

func (f *fakeItemRepo) DeleteStale(tagID string, syncedBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stale, nil
}

func (f *fakeItemRepo) UntagStale(tagID string, syncedBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.untagged, nil
}

func itemID(n int) string {
	return "item-" + string(rune('0'+n))
}

type fakeQueueSource struct {
	queue *upstream.Queue
	calls int
}

func (f *fakeQueueSource) GetQueue(ctx context.Context, queueID int64) (*upstream.Queue, error) {
	f.calls++
	return f.queue, nil
}

type fakeEnricher struct{}

func (fakeEnricher) ExtendOne(ctx context.Context, item *database.Item, opts feed.Options) (*database.Item, error) {
	return item, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	slug  string
}

func (f *fakeNotifier) TagChanged(ctx context.Context, tag *database.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.slug = tag.Slug
	return nil
}

type fakeUploader struct {
	mu      sync.Mutex
	calls   []string
	variant map[string]images.Image
}

func (f *fakeUploader) Ingest(ctx context.Context, sourceURL, category, pathID, fileName string) (map[string]images.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sourceURL)
	return f.variant, nil
}

func queueID(id int64) *int64 {
	return &id
}

func newTestSyncer(tags *fakeTagRepo, items *fakeItemRepo, queues *fakeQueueSource, notifier *fakeNotifier) *Syncer {
	// A nil *fakeNotifier must become a nil interface.
	var n Notifier
	if notifier != nil {
		n = notifier
	}
	return NewSyncer(tags, items, queues, fakeEnricher{}, nil, nil, n, 10*time.Minute, 2)
}

func TestSyncTag_NoQueue(t *testing.T) {
	tags := &fakeTagRepo{}
	queues := &fakeQueueSource{}
	s := newTestSyncer(tags, newFakeItemRepo(), queues, nil)

	err := s.SyncTag(context.Background(), &database.Tag{ID: "t1", Slug: "politics"})

	require.NoError(t, err)
	assert.False(t, tags.acquireCalled)
	assert.Zero(t, queues.calls)
}

func TestSyncTag_InProgressClearsStaleLock(t *testing.T) {
	started := time.Now().UTC().Add(-11 * time.Minute)
	tags := &fakeTagRepo{clearResult: true}
	queues := &fakeQueueSource{}
	s := newTestSyncer(tags, newFakeItemRepo(), queues, nil)

	tag := &database.Tag{
		ID:             "t1",
		Slug:           "politics",
		QueueID:        queueID(42),
		SyncInProgress: true,
		SyncStarted:    &started,
	}

	err := s.SyncTag(context.Background(), tag)

	require.NoError(t, err)
	assert.True(t, tags.clearCalled)
	assert.False(t, tags.acquireCalled, "a pass that finds the lock held must not run")
	assert.Zero(t, queues.calls)
	// Cutoff is the stale window before the pass start.
	assert.WithinDuration(t, time.Now().UTC().Add(-10*time.Minute), tags.clearCutoff, 5*time.Second)
}

func TestSyncTag_LockContention(t *testing.T) {
	tags := &fakeTagRepo{acquireResult: false}
	queues := &fakeQueueSource{}
	s := newTestSyncer(tags, newFakeItemRepo(), queues, nil)

	err := s.SyncTag(context.Background(), &database.Tag{ID: "t1", QueueID: queueID(42)})

	require.NoError(t, err)
	assert.True(t, tags.acquireCalled)
	assert.Zero(t, queues.calls, "losing the lock race must not fetch the queue")
	assert.False(t, tags.releaseCalled, "a lock never held must not be released")
}

func TestSyncTag_UnchangedQueueShortCircuits(t *testing.T) {
	raw := []byte(`{"title":"News > Politics","nodes":[]}`)
	tags := &fakeTagRepo{acquireResult: true}
	items := newFakeItemRepo()
	queues := &fakeQueueSource{queue: &upstream.Queue{Title: "News > Politics", Raw: raw}}
	notifier := &fakeNotifier{}
	s := newTestSyncer(tags, items, queues, notifier)

	tag := &database.Tag{
		ID:        "t1",
		Slug:      "politics",
		QueueID:   queueID(42),
		QueueHash: fingerprint(raw),
		Image: database.TagImage{
			Variants: map[string]database.DerivativeSet{
				"default": {"mobile": {URL: "https://cdn.example.com/x.jpg"}},
			},
		},
	}

	err := s.SyncTag(context.Background(), tag)

	require.NoError(t, err)
	require.NotNil(t, tags.finishedTag, "an unchanged pass still stamps synced")
	assert.Empty(t, items.created)
	assert.Empty(t, items.updated)
	assert.Empty(t, items.deleted)
	assert.Zero(t, notifier.calls, "an unchanged pass publishes no notification")
	assert.False(t, tags.releaseCalled)
}

func TestSyncTag_FullPass(t *testing.T) {
	raw := []byte(`{"title":"News > World > Politics","nodes":[...]}`)
	nodes := []upstream.Node{
		{ID: 1, Title: "Fresh Article", StatusText: upstream.StatusPublished, DateCreated: time.Now().UTC()},
		{ID: 2, Title: "Pulled Article", StatusText: "Draft"},
	}

	tags := &fakeTagRepo{acquireResult: true}
	items := newFakeItemRepo()
	items.byNode[2] = &database.Item{ID: "stale-item", Slug: "pulled-article"}
	queues := &fakeQueueSource{queue: &upstream.Queue{Title: "News > World > Politics", Nodes: nodes, Raw: raw}}
	notifier := &fakeNotifier{}
	s := newTestSyncer(tags, items, queues, notifier)

	tag := &database.Tag{ID: "t1", Slug: "old-slug", QueueID: queueID(42)}

	err := s.SyncTag(context.Background(), tag)

	require.NoError(t, err)

	require.Len(t, items.created, 1)
	created := items.created[0]
	assert.Equal(t, "Fresh Article", created.Title)
	assert.Equal(t, "fresh-article", created.Slug)
	require.NotNil(t, created.NodeID)
	assert.Equal(t, int64(1), *created.NodeID)
	assert.Equal(t, 0, items.tagged[created.ID], "created item takes its queue position as priority")

	assert.Equal(t, []string{"stale-item"}, items.deleted)

	// Derived tag metadata follows the queue title.
	assert.Equal(t, "World, Politics", tag.Name)
	assert.Equal(t, "world-politics", tag.Slug)
	assert.Equal(t, "World, Politics", tag.Description)
	assert.Equal(t, fingerprint(raw), tag.QueueHash)

	require.NotNil(t, tags.finishedTag)
	assert.False(t, tags.releaseCalled, "a finished pass must not also release the lock")
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "world-politics", notifier.slug)
}

func TestSyncTag_ArticleStrategyDescription(t *testing.T) {
	raw := []byte(`{"nodes":[]}`)
	tags := &fakeTagRepo{acquireResult: true}
	items := newFakeItemRepo()
	items.firstItem = &database.Item{ID: "first", Title: "Leading Headline"}
	queues := &fakeQueueSource{queue: &upstream.Queue{Title: "Culture", Raw: raw}}
	s := newTestSyncer(tags, items, queues, nil)

	tag := &database.Tag{
		ID:            "t1",
		QueueID:       queueID(7),
		ImageStrategy: database.ImageStrategyArticle,
	}

	err := s.SyncTag(context.Background(), tag)

	require.NoError(t, err)
	assert.Equal(t, "Culture", tag.Name)
	assert.Equal(t, "Leading Headline", tag.Description)
}

func TestSyncTag_ImageIngestSkipRule(t *testing.T) {
	node := upstream.Node{ID: 5, Title: "Standing Article", StatusText: upstream.StatusPublished}
	variants := map[string]images.Image{
		"mobile":   {Width: 150, Height: 112, URL: "https://cdn.example.com/a.jpg"},
		"original": {URL: "https://cdn.example.com/o.jpg"},
	}

	run := func(t *testing.T, img database.ItemImage) (*fakeUploader, *fakeItemRepo) {
		t.Helper()
		tags := &fakeTagRepo{acquireResult: true}
		items := newFakeItemRepo()
		items.byNode[5] = &database.Item{ID: "standing", Slug: "standing-article", Image: img}
		queues := &fakeQueueSource{queue: &upstream.Queue{
			Title: "Culture",
			Nodes: []upstream.Node{node},
			Raw:   []byte(`{"nodes":["changed"]}`),
		}}
		uploader := &fakeUploader{variant: variants}
		s := NewSyncer(tags, items, queues, fakeEnricher{}, uploader, nil, nil, 10*time.Minute, 2)

		tag := &database.Tag{ID: "t1", QueueID: queueID(9)}
		require.NoError(t, s.SyncTag(context.Background(), tag))
		return uploader, items
	}

	t.Run("unchanged source with derivatives skips the transform service", func(t *testing.T) {
		uploader, _ := run(t, database.ItemImage{
			Source:      "https://img.example.com/a.jpg",
			SourcePrev:  "https://img.example.com/a.jpg",
			Derivatives: database.DerivativeSet{"mobile": {URL: "https://cdn.example.com/a.jpg"}},
		})
		assert.Empty(t, uploader.calls)
	})

	t.Run("changed source re-ingests and records the new source", func(t *testing.T) {
		uploader, items := run(t, database.ItemImage{
			Source:      "https://img.example.com/b.jpg",
			SourcePrev:  "https://img.example.com/a.jpg",
			Derivatives: database.DerivativeSet{"mobile": {URL: "https://cdn.example.com/a.jpg"}},
		})
		require.Equal(t, []string{"https://img.example.com/b.jpg"}, uploader.calls)

		item := items.byNode[5]
		assert.Equal(t, item.Image.Source, item.Image.SourcePrev)
		assert.Equal(t, "https://cdn.example.com/a.jpg", item.Image.Derivatives["mobile"].URL)
		require.NotNil(t, item.Image.CachedAt)
	})
}
