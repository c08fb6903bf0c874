package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NotifyChannel string

	// Upstream configuration
	GraphAPIURL string
	BodyAPIURL  string
	RelURLHost  string

	// Image pipeline configuration
	TransformerURL string
	TransformerKey string
	BlobEndpoint   string
	BlobBucket     string
	BlobPublicURL  string
	ScratchDir     string
	ScratchMaxAge  int
	PresetsDir     string

	// Sync configuration
	WorkerCount       int
	SchedulerInterval int
	SyncDelta         int
	CleanupDelta      int
	SyncConcurrency   int
	CacheTTL          int
	CacheFallbackTTL  int
	CacheDedup        bool

	// Application configuration
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
