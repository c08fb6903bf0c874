package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mmcdole/gofeed"

	"github.com/okastrup/tagsync/app/database"
)

var _ Source = (*RSSSource)(nil)

// RSSSource serves items that mirror an RSS/Atom feed entry. The item's
// website field holds the feed URL; the newest entry wins.
type RSSSource struct {
	parser     *gofeed.Parser
	userAgent  string
	httpClient *http.Client
}

func NewRSSSource(userAgent string, httpClient *http.Client) *RSSSource {
	return &RSSSource{
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

func (s *RSSSource) Fetch(ctx context.Context, item *database.Item) (*Content, error) {
	if item.Website == "" {
		return nil, nil
	}

	data, err := s.fetchFeed(ctx, item.Website)
	if err != nil {
		return nil, err
	}

	parsed, err := s.parser.ParseString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", item.Website, err)
	}
	if len(parsed.Items) == 0 {
		return nil, nil
	}

	return s.contentFromEntry(parsed.Items[0]), nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch feed %s: HTTP %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (s *RSSSource) contentFromEntry(entry *gofeed.Item) *Content {
	content := &Content{
		Title:     entry.Title,
		Summary:   entry.Description,
		Website:   entry.Link,
		Body:      entry.Content,
		Published: true,
	}

	if entry.PublishedParsed != nil {
		content.CreatedAt = *entry.PublishedParsed
	}

	if len(entry.Authors) > 0 {
		content.Author = &ContentAuthor{
			Name:  entry.Authors[0].Name,
			Email: entry.Authors[0].Email,
		}
	}

	if entry.Image != nil {
		content.Image = &ContentImage{
			Title: entry.Image.Title,
			URL:   entry.Image.URL,
		}
	} else {
		for _, enclosure := range entry.Enclosures {
			if enclosure.Type == "image/jpeg" || enclosure.Type == "image/png" {
				content.Image = &ContentImage{
					MimeType: enclosure.Type,
					URL:      enclosure.URL,
				}
				break
			}
		}
	}

	return content
}
