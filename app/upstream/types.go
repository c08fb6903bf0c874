package upstream

import (
	"time"
)

// StatusPublished is the sole publication predicate value the content graph
// exposes; anything else counts as unpublished.
const StatusPublished = "Published"

// Queue is one ordered upstream collection of nodes. Raw holds the payload
// bytes as received, used for change fingerprinting.
type Queue struct {
	Title string `json:"title"`
	Nodes []Node `json:"nodes"`

	Raw []byte `json:"-"`
}

// Node is one upstream content record.
type Node struct {
	ID          int64        `json:"id,string"`
	Title       string       `json:"title"`
	Supertitle  string       `json:"supertitle"`
	Summary     string       `json:"summary"`
	Website     string       `json:"website"`
	StatusText  string       `json:"statusText"`
	DateCreated time.Time    `json:"dateCreated"`
	Authors     []NodeAuthor `json:"authors"`
	Images      []NodeImage  `json:"images"`

	// Body is merged in from the body endpoint; it is not part of the node
	// payload itself.
	Body string `json:"-"`
}

// Published reports whether the node is published.
func (n *Node) Published() bool {
	return n.StatusText == StatusPublished
}

type NodeAuthor struct {
	Name         string `json:"name"`
	Freetext     string `json:"freetext"`
	Email        string `json:"email"`
	Picture      string `json:"picture"`
	ProfileName  string `json:"profileName"`
	ProfileEmail string `json:"profileEmail"`

	// Social profile ids merged in from the body endpoint.
	TwitterProfileID   string `json:"-"`
	FacebookProfileID  string `json:"-"`
	InstagramProfileID string `json:"-"`
}

type NodeImage struct {
	Title        string   `json:"title"`
	Photographer string   `json:"photographer"`
	File         NodeFile `json:"file"`
}

type NodeFile struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	MimeType string        `json:"mimeType"`
	Size     int64         `json:"size"`
	Metadata *FileMetadata `json:"metadata"`
}

type FileMetadata struct {
	Fixed *FixedDimensions `json:"fixed"`
}

type FixedDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// bodyResponse is the shape returned by the body endpoint. The first entry
// carries the rendered article markup and the author's social profiles.
type bodyResponse struct {
	Items []bodyItem `json:"items"`
}

type bodyItem struct {
	Content string       `json:"content"`
	Author  []bodyAuthor `json:"author"`
}

type bodyAuthor struct {
	Value bodyProfiles `json:"value"`
}

type bodyProfiles struct {
	TwitterProfileID   string `json:"twitter_profile_id"`
	FacebookProfileID  string `json:"facebook_profile_id"`
	InstagramProfileID string `json:"instagram_profile_id"`
}
