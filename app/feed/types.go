package feed

import (
	"time"
)

// Content is the normalized payload a source produces for one content item.
// It is what the cache layer stores, encoded as JSON.
type Content struct {
	NodeID     int64     `json:"nodeId,omitempty"`
	Title      string    `json:"title"`
	Supertitle string    `json:"supertitle,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Website    string    `json:"website,omitempty"`
	Body       string    `json:"body,omitempty"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"createdAt"`

	Author *ContentAuthor `json:"author,omitempty"`
	Image  *ContentImage  `json:"image,omitempty"`
}

type ContentAuthor struct {
	Name               string `json:"name,omitempty"`
	Email              string `json:"email,omitempty"`
	Image              string `json:"image,omitempty"`
	ProfileName        string `json:"profileName,omitempty"`
	ProfileEmail       string `json:"profileEmail,omitempty"`
	TwitterProfileID   string `json:"twitterProfileId,omitempty"`
	FacebookProfileID  string `json:"facebookProfileId,omitempty"`
	InstagramProfileID string `json:"instagramProfileId,omitempty"`
}

type ContentImage struct {
	Title        string `json:"title,omitempty"`
	Photographer string `json:"photographer,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	Size         int64  `json:"size,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	URL          string `json:"url"`
}

// Options controls how an item is extended with external feed content.
type Options struct {
	// SkipCache bypasses the cache layer and loads straight from the source.
	SkipCache bool
	// IncludeBody populates the (potentially large) article body.
	IncludeBody bool
}
