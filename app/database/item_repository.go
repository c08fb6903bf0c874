package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

var _ ItemRepository = (*ItemRepositoryImpl)(nil)

// ItemRepositoryImpl handles database operations for content items
type ItemRepositoryImpl struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepositoryImpl {
	return &ItemRepositoryImpl{db: db}
}

const itemColumns = `i.id, i.slug, i.node_id, i.type_slug, i.title, i.supertitle,
	i.description, i.website, i.body, i.author, i.image,
	i.upvotes, i.downvotes, i.views, i.published_at, i.synced,
	i.created_at, i.updated_at`

func scanItem(row interface{ Scan(...any) error }) (*Item, error) {
	var item Item
	var nodeID sql.NullInt64
	var author, image []byte
	var publishedAt, synced sql.NullTime

	err := row.Scan(
		&item.ID, &item.Slug, &nodeID, &item.TypeSlug, &item.Title,
		&item.Supertitle, &item.Description, &item.Website, &item.Body,
		&author, &image, &item.Upvotes, &item.Downvotes, &item.Views,
		&publishedAt, &synced, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if nodeID.Valid {
		item.NodeID = &nodeID.Int64
	}
	if len(author) > 0 {
		if err := json.Unmarshal(author, &item.Author); err != nil {
			return nil, fmt.Errorf("failed to decode item author: %w", err)
		}
	}
	if len(image) > 0 {
		if err := json.Unmarshal(image, &item.Image); err != nil {
			return nil, fmt.Errorf("failed to decode item image: %w", err)
		}
	}
	if publishedAt.Valid {
		item.PublishedAt = &publishedAt.Time
	}
	if synced.Valid {
		item.Synced = &synced.Time
	}

	return &item, nil
}

func (r *ItemRepositoryImpl) loadTags(item *Item) error {
	rows, err := r.db.Query(`
		SELECT tag_id, priority FROM item_tags WHERE item_id = $1 ORDER BY priority
	`, item.ID)
	if err != nil {
		return fmt.Errorf("failed to load item tags: %w", err)
	}
	defer rows.Close()

	item.Tags = nil
	for rows.Next() {
		var it ItemTag
		if err := rows.Scan(&it.TagID, &it.Priority); err != nil {
			return fmt.Errorf("failed to scan item tag row: %w", err)
		}
		item.Tags = append(item.Tags, it)
	}

	return rows.Err()
}

func (r *ItemRepositoryImpl) getOne(query string, arg any) (*Item, error) {
	item, err := scanItem(r.db.QueryRow(query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if err := r.loadTags(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *ItemRepositoryImpl) GetItem(id string) (*Item, error) {
	return r.getOne(`SELECT `+itemColumns+` FROM content_items i WHERE i.id = $1`, id)
}

func (r *ItemRepositoryImpl) GetItemBySlug(slug string) (*Item, error) {
	return r.getOne(`SELECT `+itemColumns+` FROM content_items i WHERE i.slug = $1`, slug)
}

func (r *ItemRepositoryImpl) GetItemByNodeID(nodeID int64) (*Item, error) {
	return r.getOne(`SELECT `+itemColumns+` FROM content_items i WHERE i.node_id = $1`, nodeID)
}

func (r *ItemRepositoryImpl) GetItemCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM content_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

func (r *ItemRepositoryImpl) GetFirstByTag(tagID string) (*Item, error) {
	item, err := scanItem(r.db.QueryRow(`
		SELECT `+itemColumns+`
		FROM content_items i
		JOIN item_tags t ON t.item_id = i.id
		WHERE t.tag_id = $1
		ORDER BY t.priority
		LIMIT 1
	`, tagID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get first item by tag: %w", err)
	}
	if err := r.loadTags(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *ItemRepositoryImpl) GetItemsByTag(tagID string, limit int) ([]Item, error) {
	rows, err := r.db.Query(`
		SELECT `+itemColumns+`
		FROM content_items i
		JOIN item_tags t ON t.item_id = i.id
		WHERE t.tag_id = $1
		ORDER BY t.priority
		LIMIT $2
	`, tagID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get items by tag: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *ItemRepositoryImpl) CreateItem(item *Item) error {
	author, image, err := encodeBlocks(item)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(`
		INSERT INTO content_items (
			slug, node_id, type_slug, title, supertitle, description,
			website, body, author, image, upvotes, downvotes, views,
			published_at, synced
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`, item.Slug, item.NodeID, item.TypeSlug, item.Title, item.Supertitle,
		item.Description, item.Website, item.Body, author, image,
		item.Upvotes, item.Downvotes, item.Views, item.PublishedAt, item.Synced,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

func (r *ItemRepositoryImpl) UpdateItem(item *Item) error {
	author, image, err := encodeBlocks(item)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		UPDATE content_items
		SET slug = $2, node_id = $3, type_slug = $4, title = $5,
		    supertitle = $6, description = $7, website = $8, body = $9,
		    author = $10, image = $11, published_at = $12, synced = $13,
		    updated_at = NOW()
		WHERE id = $1
	`, item.ID, item.Slug, item.NodeID, item.TypeSlug, item.Title,
		item.Supertitle, item.Description, item.Website, item.Body,
		author, image, item.PublishedAt, item.Synced)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	return nil
}

func encodeBlocks(item *Item) ([]byte, []byte, error) {
	author, err := json.Marshal(item.Author)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode item author: %w", err)
	}
	image, err := json.Marshal(item.Image)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode item image: %w", err)
	}
	return author, image, nil
}

func (r *ItemRepositoryImpl) DeleteItem(id string) error {
	_, err := r.db.Exec(`DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (r *ItemRepositoryImpl) SetTag(itemID, tagID string, priority int) error {
	_, err := r.db.Exec(`
		INSERT INTO item_tags (item_id, tag_id, priority)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id, tag_id) DO UPDATE SET priority = EXCLUDED.priority
	`, itemID, tagID, priority)
	if err != nil {
		return fmt.Errorf("failed to set item tag: %w", err)
	}
	return nil
}

func (r *ItemRepositoryImpl) RemoveTag(itemID, tagID string) error {
	_, err := r.db.Exec(`
		DELETE FROM item_tags WHERE item_id = $1 AND tag_id = $2
	`, itemID, tagID)
	if err != nil {
		return fmt.Errorf("failed to remove item tag: %w", err)
	}
	return nil
}

// DeleteStale removes items the reconciliation pass no longer saw upstream,
// but only when the given tag is the sole tag referencing them.
func (r *ItemRepositoryImpl) DeleteStale(tagID string, syncedBefore time.Time) (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM content_items i
		WHERE i.synced IS NOT NULL AND i.synced < $2
		  AND (SELECT COUNT(*) FROM item_tags t WHERE t.item_id = i.id) = 1
		  AND EXISTS (SELECT 1 FROM item_tags t WHERE t.item_id = i.id AND t.tag_id = $1)
	`, tagID, syncedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale items: %w", err)
	}
	return result.RowsAffected()
}

// UntagStale detaches the tag from stale items that other tags still
// reference, leaving the items themselves in place.
func (r *ItemRepositoryImpl) UntagStale(tagID string, syncedBefore time.Time) (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM item_tags t
		USING content_items i
		WHERE t.item_id = i.id AND t.tag_id = $1
		  AND i.synced IS NOT NULL AND i.synced < $2
		  AND (SELECT COUNT(*) FROM item_tags x WHERE x.item_id = i.id) > 1
	`, tagID, syncedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to untag stale items: %w", err)
	}
	return result.RowsAffected()
}

func (r *ItemRepositoryImpl) DeleteUntagged() (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM content_items i
		WHERE NOT EXISTS (SELECT 1 FROM item_tags t WHERE t.item_id = i.id)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete untagged items: %w", err)
	}
	return result.RowsAffected()
}
