package database

import (
	"time"
)

// Image strategies control where a tag's hero image comes from.
const (
	// ImageStrategyDefault generates derivatives from the tag's own source
	// image.
	ImageStrategyDefault = "default"
	// ImageStrategyArticle borrows the image of the tag's first item.
	ImageStrategyArticle = "article"
)

// Derivative is one transformed variant of a source image, hosted publicly.
type Derivative struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// DerivativeSet maps a preset name (including "original") to its derivative.
type DerivativeSet map[string]Derivative

// TagImage is the image block persisted with a tag. Variants is keyed by the
// image strategy that produced the set ("default" or "article").
type TagImage struct {
	Source   string                   `json:"source,omitempty"`
	Variants map[string]DerivativeSet `json:"variants,omitempty"`
	CachedAt *time.Time               `json:"cachedAt,omitempty"`
}

// ItemImage is the image block persisted with a content item. SourcePrev
// holds the source URL seen on the previous enrichment pass and drives the
// re-ingestion skip rule.
type ItemImage struct {
	Title        string        `json:"title,omitempty"`
	Photographer string        `json:"photographer,omitempty"`
	FileName     string        `json:"fileName,omitempty"`
	MimeType     string        `json:"mimeType,omitempty"`
	Size         int64         `json:"size,omitempty"`
	Width        int           `json:"width,omitempty"`
	Height       int           `json:"height,omitempty"`
	Source       string        `json:"source,omitempty"`
	SourcePrev   string        `json:"sourcePrev,omitempty"`
	Derivatives  DerivativeSet `json:"derivatives,omitempty"`
	CachedAt     *time.Time    `json:"cachedAt,omitempty"`
}

// Author is the author block persisted with a content item.
type Author struct {
	Name               string        `json:"name,omitempty"`
	Email              string        `json:"email,omitempty"`
	Image              string        `json:"image,omitempty"`
	ProfileName        string        `json:"profileName,omitempty"`
	ProfileEmail       string        `json:"profileEmail,omitempty"`
	TwitterProfileID   string        `json:"twitterProfileId,omitempty"`
	FacebookProfileID  string        `json:"facebookProfileId,omitempty"`
	InstagramProfileID string        `json:"instagramProfileId,omitempty"`
	Picture            DerivativeSet `json:"picture,omitempty"`
	CachedAt           *time.Time    `json:"cachedAt,omitempty"`
}

type Tag struct {
	ID             string
	Name           string
	Slug           string
	Description    string
	ImageStrategy  string // "default" or "article"
	Image          TagImage
	QueueID        *int64 // upstream nodequeue id; nil means nothing to sync
	QueueHash      string // fingerprint of the last-seen upstream payload
	SyncInProgress bool
	SyncStarted    *time.Time
	Synced         *time.Time
	FirstItem      string // id of the item whose image was last used
	Priority       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasDerivatives reports whether any derivative set has been generated for
// the tag's image.
func (t *Tag) HasDerivatives() bool {
	for _, set := range t.Image.Variants {
		if len(set) > 0 {
			return true
		}
	}
	return false
}

type Item struct {
	ID          string
	Slug        string
	NodeID      *int64 // upstream node id; nil for purely local items
	TypeSlug    string
	Title       string
	Supertitle  string
	Description string
	Website     string
	Body        string
	Author      Author
	Image       ItemImage
	Tags        []ItemTag
	Upvotes     int
	Downvotes   int
	Views       int
	PublishedAt *time.Time
	Synced      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ItemTag is one (tag, priority) association of a content item. Associations
// form a set keyed by TagID; priority is the item's position within the tag.
type ItemTag struct {
	TagID    string
	Priority int
}
