package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"tagsync_user" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"tagsync_password" description:"Database password (required)" required:"true"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"tagsync" description:"Database name"`

	// Redis configuration
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password (optional)"`
	RedisDB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`
	NotifyChannel string `long:"notify-channel" env:"NOTIFY_CHANNEL" default:"tagsync:changes" description:"Redis pub/sub channel for sync notifications"`

	// Upstream configuration
	GraphAPIURL string `long:"graph-api-url" env:"GRAPH_API_URL" description:"Content-graph API base URL (required)" required:"true"`
	BodyAPIURL  string `long:"body-api-url" env:"BODY_API_URL" description:"Article body API base URL (required)" required:"true"`
	RelURLHost  string `long:"rel-url-host" env:"REL_URL_HOST" description:"Base URL for resolving relative upstream file paths"`

	// Image pipeline configuration
	TransformerURL string `long:"transformer-url" env:"TRANSFORMER_URL" description:"Image transform service base URL"`
	TransformerKey string `long:"transformer-key" env:"TRANSFORMER_KEY" description:"Image transform service API key (optional)"`
	BlobEndpoint   string `long:"blob-endpoint" env:"BLOB_ENDPOINT" description:"Blob storage gateway endpoint"`
	BlobBucket     string `long:"blob-bucket" env:"BLOB_BUCKET" default:"images" description:"Blob storage bucket"`
	BlobPublicURL  string `long:"blob-public-url" env:"BLOB_PUBLIC_URL" description:"Public base URL for stored blobs"`
	ScratchDir     string `long:"scratch-dir" env:"SCRATCH_DIR" default:"./scratch" description:"Directory for temporary image downloads"`
	ScratchMaxAge  int    `long:"scratch-max-age" env:"SCRATCH_MAX_AGE" default:"1800" description:"Age in seconds after which scratch files are removed"`
	PresetsDir     string `long:"presets-dir" env:"PRESETS_DIR" description:"Directory with image preset overrides (optional)"`

	// Sync configuration
	WorkerCount       int  `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for sync processing"`
	SchedulerInterval int  `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	SyncDelta         int  `long:"sync-delta" env:"SYNC_DELTA" default:"300" description:"Seconds after which a synced tag is due again"`
	CleanupDelta      int  `long:"cleanup-delta" env:"CLEANUP_DELTA" default:"600" description:"Seconds after which a held sync lock is considered stale"`
	SyncConcurrency   int  `long:"sync-concurrency" env:"SYNC_CONCURRENCY" default:"4" description:"Concurrent item operations per sync pass"`
	CacheTTL          int  `long:"cache-ttl" env:"CACHE_TTL" default:"300" description:"Content cache TTL in seconds"`
	CacheFallbackTTL  int  `long:"cache-fallback-ttl" env:"CACHE_FALLBACK_TTL" default:"86400" description:"Fallback cache slot TTL in seconds"`
	CacheDedup        bool `long:"cache-dedup" env:"CACHE_DEDUP" description:"Collapse concurrent cache misses into a single upstream fetch"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"TagSync/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		RedisAddr:         raw.RedisAddr,
		RedisPassword:     raw.RedisPassword,
		RedisDB:           raw.RedisDB,
		NotifyChannel:     raw.NotifyChannel,
		GraphAPIURL:       raw.GraphAPIURL,
		BodyAPIURL:        raw.BodyAPIURL,
		RelURLHost:        raw.RelURLHost,
		TransformerURL:    raw.TransformerURL,
		TransformerKey:    raw.TransformerKey,
		BlobEndpoint:      raw.BlobEndpoint,
		BlobBucket:        raw.BlobBucket,
		BlobPublicURL:     raw.BlobPublicURL,
		ScratchDir:        raw.ScratchDir,
		ScratchMaxAge:     raw.ScratchMaxAge,
		PresetsDir:        raw.PresetsDir,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		SyncDelta:         raw.SyncDelta,
		CleanupDelta:      raw.CleanupDelta,
		SyncConcurrency:   raw.SyncConcurrency,
		CacheTTL:          raw.CacheTTL,
		CacheFallbackTTL:  raw.CacheFallbackTTL,
		CacheDedup:        raw.CacheDedup,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
