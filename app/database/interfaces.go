package database

import (
	"time"
)

type TagRepository interface {
	GetTag(id string) (*Tag, error)
	GetTagBySlug(slug string) (*Tag, error)
	GetTags() ([]Tag, error)
	GetTagCount() (int, error)

	CreateTag(tag *Tag) error
	UpdateTag(tag *Tag) error

	// GetNotSyncedSince returns queue-backed tags whose last successful sync
	// predates the cutoff, never-synced tags first, then oldest first.
	GetNotSyncedSince(cutoff time.Time) ([]Tag, error)

	// AcquireSyncLock sets the sync-in-progress flags if and only if no sync
	// is currently marked as running. Returns false when another pass holds
	// the lock.
	AcquireSyncLock(tagID string, startedAt time.Time) (bool, error)

	// ReleaseSyncLock clears the sync-in-progress flags without recording a
	// successful completion. Used on the failure path.
	ReleaseSyncLock(tagID string) error

	// ClearStaleSyncLock clears the sync-in-progress flags only when the
	// recorded start time predates the cutoff. Returns true when a stale lock
	// was actually cleared.
	ClearStaleSyncLock(tagID string, startedBefore time.Time) (bool, error)

	// FinishSync persists the tag's derived fields, stamps synced and clears
	// the sync-in-progress flags in one write.
	FinishSync(tag *Tag, syncedAt time.Time) error
}

type ItemRepository interface {
	GetItem(id string) (*Item, error)
	GetItemBySlug(slug string) (*Item, error)
	GetItemByNodeID(nodeID int64) (*Item, error)
	GetItemCount() (int, error)

	// GetFirstByTag returns the item with the highest priority (lowest
	// position value) within the tag, or nil when the tag has no items.
	GetFirstByTag(tagID string) (*Item, error)
	GetItemsByTag(tagID string, limit int) ([]Item, error)

	CreateItem(item *Item) error
	UpdateItem(item *Item) error
	DeleteItem(id string) error

	// SetTag associates the item with the tag, inserting the association or
	// updating its priority when it already exists.
	SetTag(itemID, tagID string, priority int) error
	RemoveTag(itemID, tagID string) error

	// DeleteStale removes items tagged only by the given tag whose synced
	// stamp predates the cutoff.
	DeleteStale(tagID string, syncedBefore time.Time) (int64, error)

	// UntagStale removes the tag association from items that carry at least
	// one other tag and whose synced stamp predates the cutoff.
	UntagStale(tagID string, syncedBefore time.Time) (int64, error)

	// DeleteUntagged removes items that no tag references anymore.
	DeleteUntagged() (int64, error)
}
