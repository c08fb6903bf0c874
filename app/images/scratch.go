package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var scratchExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Scratch is the local download directory used as a staging area between the
// source host, the transformation service and blob storage.
type Scratch struct {
	dir        string
	maxAge     time.Duration
	userAgent  string
	httpClient *http.Client
}

func NewScratch(dir string, maxAge time.Duration, userAgent string, httpClient *http.Client) *Scratch {
	return &Scratch{
		dir:        dir,
		maxAge:     maxAge,
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// EnsureDir creates the scratch directory if it is missing.
func (s *Scratch) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return nil
}

// Download fetches the file at the given URL into the scratch directory and
// returns the local path. The name is prefixed with a timestamp so files
// sharing a name never collide.
func (s *Scratch) Download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: HTTP %d", url, resp.StatusCode)
	}

	name := fmt.Sprintf("%d-%s", time.Now().UnixNano(), FileBase(url))
	path := filepath.Join(s.dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}

	return path, nil
}

// Clean removes image files in the scratch directory older than the
// configured age. Only the top level is scanned; the scratch area has no
// subdirectories.
func (s *Scratch) Clean() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read scratch dir: %w", err)
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !scratchExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
				slog.Warn("Failed to remove scratch file", "file", entry.Name(), "error", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		slog.Debug("Cleaned scratch directory", "removed", removed)
	}

	return nil
}

// FileBase extracts the filename from a URL or filesystem path. When the URL
// does not end with a filename, the last path segment is returned as-is.
func FileBase(path string) string {
	trimmed := strings.TrimRight(path, "/")
	return trimmed[strings.LastIndex(trimmed, "/")+1:]
}
