package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

var _ TagRepository = (*TagRepositoryImpl)(nil)

// TagRepositoryImpl handles database operations for tags
type TagRepositoryImpl struct {
	db *DB
}

func NewTagRepository(db *DB) *TagRepositoryImpl {
	return &TagRepositoryImpl{db: db}
}

const tagColumns = `id, name, slug, description, image_strategy, image,
	queue_id, queue_hash, sync_in_progress, sync_started, synced,
	first_item, priority, created_at, updated_at`

func scanTag(row interface{ Scan(...any) error }) (*Tag, error) {
	var tag Tag
	var image []byte
	var queueID sql.NullInt64
	var syncStarted, synced sql.NullTime
	var firstItem sql.NullString

	err := row.Scan(
		&tag.ID, &tag.Name, &tag.Slug, &tag.Description, &tag.ImageStrategy,
		&image, &queueID, &tag.QueueHash, &tag.SyncInProgress,
		&syncStarted, &synced, &firstItem, &tag.Priority,
		&tag.CreatedAt, &tag.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(image) > 0 {
		if err := json.Unmarshal(image, &tag.Image); err != nil {
			return nil, fmt.Errorf("failed to decode tag image: %w", err)
		}
	}
	if queueID.Valid {
		tag.QueueID = &queueID.Int64
	}
	if syncStarted.Valid {
		tag.SyncStarted = &syncStarted.Time
	}
	if synced.Valid {
		tag.Synced = &synced.Time
	}
	if firstItem.Valid {
		tag.FirstItem = firstItem.String
	}

	return &tag, nil
}

func (r *TagRepositoryImpl) GetTag(id string) (*Tag, error) {
	tag, err := scanTag(r.db.QueryRow(
		`SELECT `+tagColumns+` FROM tags WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}
	return tag, nil
}

func (r *TagRepositoryImpl) GetTagBySlug(slug string) (*Tag, error) {
	tag, err := scanTag(r.db.QueryRow(
		`SELECT `+tagColumns+` FROM tags WHERE slug = $1`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag by slug: %w", err)
	}
	return tag, nil
}

func (r *TagRepositoryImpl) GetTags() ([]Tag, error) {
	rows, err := r.db.Query(
		`SELECT ` + tagColumns + ` FROM tags ORDER BY priority, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, *tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}

	return tags, nil
}

func (r *TagRepositoryImpl) GetTagCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get tag count: %w", err)
	}
	return count, nil
}

// GetNotSyncedSince returns queue-backed tags whose synced stamp predates
// the cutoff, never-synced first, then oldest first, so the longest-stale
// tags are reconciled before fresher ones.
func (r *TagRepositoryImpl) GetNotSyncedSince(cutoff time.Time) ([]Tag, error) {
	rows, err := r.db.Query(`
		SELECT `+tagColumns+`
		FROM tags
		WHERE queue_id IS NOT NULL AND (synced IS NULL OR synced < $1)
		ORDER BY synced NULLS FIRST
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, *tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}

	return tags, nil
}

func (r *TagRepositoryImpl) CreateTag(tag *Tag) error {
	image, err := json.Marshal(tag.Image)
	if err != nil {
		return fmt.Errorf("failed to encode tag image: %w", err)
	}

	err = r.db.QueryRow(`
		INSERT INTO tags (name, slug, description, image_strategy, image, queue_id, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, tag.Name, tag.Slug, tag.Description, tag.ImageStrategy, image,
		tag.QueueID, tag.Priority,
	).Scan(&tag.ID, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}

	return nil
}

func (r *TagRepositoryImpl) UpdateTag(tag *Tag) error {
	image, err := json.Marshal(tag.Image)
	if err != nil {
		return fmt.Errorf("failed to encode tag image: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE tags
		SET name = $2, slug = $3, description = $4, image_strategy = $5,
		    image = $6, queue_id = $7, queue_hash = $8,
		    first_item = NULLIF($9, ''), priority = $10, updated_at = NOW()
		WHERE id = $1
	`, tag.ID, tag.Name, tag.Slug, tag.Description, tag.ImageStrategy,
		image, tag.QueueID, tag.QueueHash, tag.FirstItem, tag.Priority)
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}

	return nil
}

// AcquireSyncLock performs a conditional update so two passes can never both
// observe the lock as free and both proceed.
func (r *TagRepositoryImpl) AcquireSyncLock(tagID string, startedAt time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE tags
		SET sync_in_progress = TRUE, sync_started = $2, updated_at = NOW()
		WHERE id = $1 AND sync_in_progress = FALSE
	`, tagID, startedAt)
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read sync lock result: %w", err)
	}

	return affected == 1, nil
}

func (r *TagRepositoryImpl) ReleaseSyncLock(tagID string) error {
	_, err := r.db.Exec(`
		UPDATE tags
		SET sync_in_progress = FALSE, sync_started = NULL, updated_at = NOW()
		WHERE id = $1
	`, tagID)
	if err != nil {
		return fmt.Errorf("failed to release sync lock: %w", err)
	}
	return nil
}

// ClearStaleSyncLock clears the lock fields only when the recorded start
// time has aged past the cutoff, making a crashed holder's tag eligible for
// retry on the next scheduled attempt.
func (r *TagRepositoryImpl) ClearStaleSyncLock(tagID string, startedBefore time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE tags
		SET sync_in_progress = FALSE, sync_started = NULL, updated_at = NOW()
		WHERE id = $1 AND sync_in_progress = TRUE AND sync_started < $2
	`, tagID, startedBefore)
	if err != nil {
		return false, fmt.Errorf("failed to clear stale sync lock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read stale lock result: %w", err)
	}

	return affected == 1, nil
}

func (r *TagRepositoryImpl) FinishSync(tag *Tag, syncedAt time.Time) error {
	image, err := json.Marshal(tag.Image)
	if err != nil {
		return fmt.Errorf("failed to encode tag image: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE tags
		SET name = $2, slug = $3, description = $4, image = $5,
		    queue_hash = $6, first_item = NULLIF($7, ''),
		    sync_in_progress = FALSE, sync_started = NULL,
		    synced = $8, updated_at = NOW()
		WHERE id = $1
	`, tag.ID, tag.Name, tag.Slug, tag.Description, image,
		tag.QueueHash, tag.FirstItem, syncedAt)
	if err != nil {
		return fmt.Errorf("failed to finish sync: %w", err)
	}

	tag.SyncInProgress = false
	tag.SyncStarted = nil
	tag.Synced = &syncedAt

	return nil
}
