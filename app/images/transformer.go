package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/okastrup/tagsync/app/config"
)

// Image is one hosted image variant with its dimensions.
type Image struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// TransformResult is the transformation service's response: the untouched
// original's metadata plus one derivative per requested preset.
type TransformResult struct {
	Original    Image            `json:"original"`
	Derivatives map[string]Image `json:"derivatives"`
}

// Transformer submits source images to the external transformation service,
// which produces one derivative per preset.
type Transformer struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewTransformer(endpoint, apiKey string, httpClient *http.Client) *Transformer {
	return &Transformer{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Transform uploads the local file together with the preset list and returns
// the transformed variants.
func (t *Transformer) Transform(ctx context.Context, filePath string, presets config.PresetSet) (*TransformResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy source file: %w", err)
	}

	presetJSON, err := json.Marshal(presets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode presets: %w", err)
	}
	if err := writer.WriteField("presets", string(presetJSON)); err != nil {
		return nil, fmt.Errorf("failed to write presets field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/transform", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call transformation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transformation service returned HTTP %d", resp.StatusCode)
	}

	var result TransformResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode transformation response: %w", err)
	}

	return &result, nil
}
