package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey   string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName      string `mapstructure:"model_name"     validate:"required"`
	EmbeddingModel string `mapstructure:"embedding_model" validate:"required"`
}

// WorkerConfig contains the queue engine settings: retry policy, fetch pool
// size and timeout, the processing trigger interval, and whether a sync is
// triggered after each completed pass.
type WorkerConfig struct {
	MaxRetries       int  `mapstructure:"max_retries"       validate:"gte=0"`
	BaseDelayMs      int  `mapstructure:"base_delay_ms"     validate:"gt=0"`
	MaxDelayMs       int  `mapstructure:"max_delay_ms"      validate:"gt=0"`
	FetchConcurrency int  `mapstructure:"fetch_concurrency" validate:"gt=0"`
	FetchTimeoutMs   int  `mapstructure:"fetch_timeout_ms"  validate:"gt=0"`
	TriggerIntervalS int  `mapstructure:"trigger_interval_s" validate:"gt=0"`
	SyncEnabled      bool `mapstructure:"sync_enabled"`
}
