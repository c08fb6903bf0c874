package images

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/okastrup/tagsync/app/config"
)

var timestampPrefix = regexp.MustCompile(`^\d+-`)

// Uploader runs the full ingestion pipeline for one source image: download
// to scratch, transform into the category's preset set, and persist every
// variant to blob storage under a deterministic key.
type Uploader struct {
	transformer *Transformer
	blob        BlobStore
	scratch     *Scratch
	presets     map[string]config.PresetSet
}

func NewUploader(transformer *Transformer, blob BlobStore, scratch *Scratch, presets map[string]config.PresetSet) *Uploader {
	return &Uploader{
		transformer: transformer,
		blob:        blob,
		scratch:     scratch,
		presets:     presets,
	}
}

// UploadKey returns the blob storage key for one derivative.
func UploadKey(category, pathID, presetName, fileName string) string {
	return strings.Join([]string{"images", category, pathID, presetName, fileName}, "/")
}

// Ingest produces the category's derivative set for the image at sourceURL
// and re-hosts every variant, returning public images keyed by preset name
// plus "original".
//
// A transformation-service failure is not fatal to the surrounding pass: it
// is logged and a nil map returned. Storage failures degrade to the
// service-hosted URL for the affected variant.
func (u *Uploader) Ingest(ctx context.Context, sourceURL, category, pathID, fileName string) (map[string]Image, error) {
	presets, ok := u.presets[category]
	if !ok {
		return nil, fmt.Errorf("unknown image category %s", category)
	}

	localPath, err := u.scratch.Download(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to stage source image: %w", err)
	}

	result, err := u.transformer.Transform(ctx, localPath, presets)
	if err != nil {
		slog.Warn("Image transformation failed", "source", sourceURL, "error", err)
		return nil, nil
	}

	variants := make(map[string]Image, len(result.Derivatives)+1)
	for name, derivative := range result.Derivatives {
		variants[name] = derivative
	}
	variants["original"] = result.Original

	uploaded := make(map[string]Image, len(variants))
	for name, variant := range variants {
		uploaded[name] = u.rehost(ctx, variant, category, pathID, name, fileName)
	}

	return uploaded, nil
}

// rehost copies one service-hosted variant into durable blob storage. On
// failure the variant keeps its transient URL so the caller still gets a
// usable, if short-lived, result.
func (u *Uploader) rehost(ctx context.Context, variant Image, category, pathID, presetName, fileName string) Image {
	localPath, err := u.scratch.Download(ctx, variant.URL)
	if err != nil {
		slog.Warn("Failed to stage derivative for upload", "url", variant.URL, "error", err)
		return variant
	}

	name := fileName
	if name == "" {
		name = timestampPrefix.ReplaceAllString(FileBase(localPath), "")
	}

	key := UploadKey(category, pathID, presetName, name)
	publicURL, err := u.blob.Put(ctx, localPath, key)
	if err != nil {
		slog.Warn("Failed to upload derivative to blob storage", "key", key, "error", err)
		return variant
	}

	variant.URL = publicURL
	return variant
}
