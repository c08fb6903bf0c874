package feed

import (
	"context"
	"net/url"

	"github.com/okastrup/tagsync/app/database"
	"github.com/okastrup/tagsync/app/upstream"
)

var _ Source = (*GraphSource)(nil)

// GraphSource serves items mirrored from the content-graph service.
type GraphSource struct {
	client     *upstream.Client
	relURLHost string
}

// NewGraphSource creates a graph-backed source. relURLHost is the base used
// to resolve the relative file paths the graph returns for images.
func NewGraphSource(client *upstream.Client, relURLHost string) *GraphSource {
	return &GraphSource{client: client, relURLHost: relURLHost}
}

func (s *GraphSource) Fetch(ctx context.Context, item *database.Item) (*Content, error) {
	if item.NodeID == nil {
		// Local-only items have nothing to fetch.
		return nil, nil
	}

	node, err := s.client.GetNode(ctx, *item.NodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nil
	}

	return s.contentFromNode(node), nil
}

func (s *GraphSource) contentFromNode(node *upstream.Node) *Content {
	content := &Content{
		NodeID:     node.ID,
		Title:      node.Title,
		Supertitle: node.Supertitle,
		Summary:    node.Summary,
		Website:    node.Website,
		Body:       node.Body,
		Published:  node.Published(),
		CreatedAt:  node.DateCreated,
	}

	if len(node.Authors) > 0 {
		author := node.Authors[0]
		name := author.Name
		if name == "" {
			name = author.Freetext
		}
		profileName := author.ProfileName
		if profileName == "" {
			profileName = name
		}
		picture := author.Picture
		if picture != "" {
			picture = s.resolveURL(picture)
		}
		content.Author = &ContentAuthor{
			Name:               name,
			Email:              author.Email,
			Image:              picture,
			ProfileName:        profileName,
			ProfileEmail:       author.ProfileEmail,
			TwitterProfileID:   author.TwitterProfileID,
			FacebookProfileID:  author.FacebookProfileID,
			InstagramProfileID: author.InstagramProfileID,
		}
	}

	if len(node.Images) > 0 {
		img := node.Images[0]
		content.Image = &ContentImage{
			Title:        img.Title,
			Photographer: img.Photographer,
			FileName:     img.File.Name,
			MimeType:     img.File.MimeType,
			Size:         img.File.Size,
			URL:          s.resolveURL(img.File.Path),
		}
		if img.File.Metadata != nil && img.File.Metadata.Fixed != nil {
			content.Image.Width = img.File.Metadata.Fixed.Width
			content.Image.Height = img.File.Metadata.Fixed.Height
		}
	}

	return content
}

// resolveURL turns the graph's relative file paths into absolute URLs.
func (s *GraphSource) resolveURL(path string) string {
	base, err := url.Parse(s.relURLHost)
	if err != nil {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return base.ResolveReference(ref).String()
}
