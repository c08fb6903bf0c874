package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// Client talks to the external content-graph service. Nodes are fetched from
// two endpoints: the content endpoint serves the full node, the body endpoint
// serves the rendered article markup; the two are merged into one Node.
type Client struct {
	contentURL string
	bodyURL    string
	userAgent  string
	httpClient *http.Client

	// noRedirect is httpClient with redirects disabled; the body endpoint
	// answers 302 for unpublished nodes and following it would mask that.
	noRedirect *http.Client
}

func NewClient(contentURL, bodyURL, userAgent string, httpClient *http.Client) *Client {
	noRedirect := *httpClient
	noRedirect.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		contentURL: contentURL,
		bodyURL:    bodyURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		noRedirect: &noRedirect,
	}
}

func (c *Client) get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	return client.Do(req)
}

// GetQueue fetches a nodequeue by id. The raw payload is preserved on the
// returned Queue for fingerprinting.
func (c *Client) GetQueue(ctx context.Context, queueID int64) (*Queue, error) {
	url := fmt.Sprintf("%s/nodequeue/%d.json", c.contentURL, queueID)

	resp, err := c.get(ctx, c.httpClient, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nodequeue %d: %w", queueID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch nodequeue %d: HTTP %d", queueID, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read nodequeue %d: %w", queueID, err)
	}

	var queue Queue
	if err := json.Unmarshal(raw, &queue); err != nil {
		return nil, fmt.Errorf("failed to decode nodequeue %d: %w", queueID, err)
	}
	queue.Raw = raw

	return &queue, nil
}

// GetNode fetches a single node, fanning out over the content and body
// endpoints and merging the results. A nil node with a nil error means the
// node is not exposed upstream (unpublished); callers treat that as absent
// content, not as a failure.
func (c *Client) GetNode(ctx context.Context, nodeID int64) (*Node, error) {
	var node *Node
	var body *bodyResponse

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		node, err = c.getContentNode(ctx, nodeID)
		return err
	})
	g.Go(func() error {
		var err error
		body, err = c.getBody(ctx, nodeID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if node == nil || body == nil {
		return nil, nil
	}

	if len(body.Items) == 0 {
		return nil, fmt.Errorf("unexpected body response for node %d: no items", nodeID)
	}
	first := body.Items[0]
	node.Body = first.Content

	if len(node.Authors) > 0 && len(first.Author) > 0 {
		node.Authors[0].TwitterProfileID = first.Author[0].Value.TwitterProfileID
		node.Authors[0].FacebookProfileID = first.Author[0].Value.FacebookProfileID
		node.Authors[0].InstagramProfileID = first.Author[0].Value.InstagramProfileID
	}

	return node, nil
}

func (c *Client) getContentNode(ctx context.Context, nodeID int64) (*Node, error) {
	url := fmt.Sprintf("%s/node/%d.json", c.contentURL, nodeID)

	resp, err := c.get(ctx, c.httpClient, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch node %d: %w", nodeID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var node Node
		if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
			return nil, fmt.Errorf("failed to decode node %d: %w", nodeID, err)
		}
		return &node, nil
	case http.StatusUnauthorized:
		// Unpublished nodes are not exposed through the content endpoint.
		slog.Debug("Node not exposed by content endpoint", "node_id", nodeID, "status", resp.StatusCode)
		return nil, nil
	default:
		return nil, fmt.Errorf("failed to fetch node %d: HTTP %d", nodeID, resp.StatusCode)
	}
}

func (c *Client) getBody(ctx context.Context, nodeID int64) (*bodyResponse, error) {
	url := fmt.Sprintf("%s/node/%d", c.bodyURL, nodeID)

	resp, err := c.get(ctx, c.noRedirect, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch body for node %d: %w", nodeID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body bodyResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode body for node %d: %w", nodeID, err)
		}
		return &body, nil
	case http.StatusFound:
		// Unpublished nodes redirect instead of serving markup.
		slog.Debug("Node not exposed by body endpoint", "node_id", nodeID, "status", resp.StatusCode)
		return nil, nil
	default:
		return nil, fmt.Errorf("failed to fetch body for node %d: HTTP %d", nodeID, resp.StatusCode)
	}
}
