package images

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// BlobStore persists files to durable public storage.
type BlobStore interface {
	// Put uploads the local file under the given key and returns its public
	// URL.
	Put(ctx context.Context, localFile, key string) (string, error)
}

var _ BlobStore = (*HTTPBlobStore)(nil)

// HTTPBlobStore uploads to an S3-compatible object-store gateway over plain
// HTTP PUT. Public URLs are composed from the configured public base.
type HTTPBlobStore struct {
	endpoint      string
	bucket        string
	publicBaseURL string
	httpClient    *http.Client
}

func NewHTTPBlobStore(endpoint, bucket, publicBaseURL string, httpClient *http.Client) *HTTPBlobStore {
	return &HTTPBlobStore{
		endpoint:      strings.TrimRight(endpoint, "/"),
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		httpClient:    httpClient,
	}
}

func (s *HTTPBlobStore) Put(ctx context.Context, localFile, key string) (string, error) {
	file, err := os.Open(localFile)
	if err != nil {
		return "", fmt.Errorf("failed to open file for upload: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file for upload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, file)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentTypeForKey(key))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return "", fmt.Errorf("failed to upload %s: HTTP %d", key, resp.StatusCode)
	}

	return s.publicBaseURL + "/" + key, nil
}

func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
