// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file, and environment variables.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Loaded once at startup; immutable
// for the process lifetime.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// Store selects the backing store: "memory" or "postgres".
	Store string `koanf:"store"`

	// PostgresDSN is required when Store is "postgres".
	PostgresDSN string `koanf:"postgres_dsn"`

	// ShardCount configures the in-memory counter store sharding.
	ShardCount int `koanf:"shard_count"`

	// DedupeDeliveries enables delivery-id deduplication at ingress. With it
	// off, a literal webhook redelivery increments counters again and only
	// the milestone-id layer absorbs the duplicate.
	DedupeDeliveries bool `koanf:"dedupe_deliveries"`

	// DedupeSize bounds the delivery-id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// DetectMaxAttempts bounds the detector's load-modify-CAS retry cycle.
	DetectMaxAttempts int `koanf:"detect_max_attempts"`

	// DetectRetryBackoffMS is the base backoff between conflicting attempts.
	DetectRetryBackoffMS int `koanf:"detect_retry_backoff_ms"`

	// Thresholds overrides the milestone threshold table per category.
	// Empty means the stock table.
	Thresholds map[string][]int `koanf:"thresholds"`

	// SlackWebhookURL and DiscordWebhookURL enable the notification
	// channels. Empty disables the channel.
	SlackWebhookURL   string `koanf:"slack_webhook_url"`
	DiscordWebhookURL string `koanf:"discord_webhook_url"`

	// ChannelTimeoutMS bounds each channel delivery attempt.
	ChannelTimeoutMS int `koanf:"channel_timeout_ms"`

	// OpenAIAPIKey enables LLM-phrased celebration posts. Empty means the
	// deterministic template is used for every milestone.
	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIModel   string `koanf:"openai_model"`
	OpenAIBaseURL string `koanf:"openai_base_url"`

	// RenderTimeoutMS bounds one LLM rendering call.
	RenderTimeoutMS int `koanf:"render_timeout_ms"`

	// MaxListLimit caps GET /milestones?limit.
	MaxListLimit int `koanf:"max_list_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":8090",
		Store:                "memory",
		ShardCount:           8,
		DedupeDeliveries:     true,
		DedupeSize:           50_000,
		DetectMaxAttempts:    5,
		DetectRetryBackoffMS: 10,
		ChannelTimeoutMS:     5_000,
		OpenAIModel:          "gpt-3.5-turbo",
		RenderTimeoutMS:      10_000,
		MaxListLimit:         100,
	}
}
