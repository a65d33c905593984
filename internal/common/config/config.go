// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Camunda       CamundaConfig       `mapstructure:"camunda"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Media         MediaConfig         `mapstructure:"media"`
	Triage        TriageConfig        `mapstructure:"triage"`
	Gate          GateConfig          `mapstructure:"gate"`
	Consolidation StageConfig         `mapstructure:"consolidation"`
	Verdict       StageConfig         `mapstructure:"verdict"`
	APIs          APIsConfig          `mapstructure:"apis"`
	Status        StatusConfig        `mapstructure:"status"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	RequestTimeout int      `mapstructure:"request_timeout"` // milliseconds
	ReadTimeout    int      `mapstructure:"read_timeout"`    // milliseconds
}

// CamundaConfig enables the optional analyze-media job worker.
type CamundaConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BrokerAddress string `mapstructure:"broker_address"`
	MaxJobsActive int    `mapstructure:"max_jobs_active"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Pipeline Stage Configuration ---

// MediaConfig drives acquisition and frame extraction.
type MediaConfig struct {
	Fetcher     string `mapstructure:"fetcher"` // "ytdlp" or "http"
	YtDlpPath   string `mapstructure:"ytdlp_path"`
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
	TempRoot    string `mapstructure:"temp_root"`

	MaxAttempts int `mapstructure:"max_attempts"`
	BaseDelay   int `mapstructure:"base_delay"` // milliseconds
	MaxDelay    int `mapstructure:"max_delay"`  // milliseconds

	FrameMode            string `mapstructure:"frame_mode"` // "count" or "interval"
	FrameCount           int    `mapstructure:"frame_count"`
	FrameIntervalSeconds int    `mapstructure:"frame_interval_seconds"`

	SyntheticOnAcquisitionFailure bool  `mapstructure:"synthetic_on_acquisition_failure"`
	MaxDownloadBytes              int64 `mapstructure:"max_download_bytes"`
}

type TriageConfig struct {
	TaskTimeout int `mapstructure:"task_timeout"` // milliseconds
	MaxParallel int `mapstructure:"max_parallel"`
}

type GateConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	LookupConfidence float64 `mapstructure:"lookup_confidence"`
	CacheTTL         int     `mapstructure:"cache_ttl"` // milliseconds
}

// StageConfig is shared by the consolidation and verdict stages.
type StageConfig struct {
	Timeout    int `mapstructure:"timeout"` // milliseconds
	MaxRetries int `mapstructure:"max_retries"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI struct {
		BaseURL            string  `mapstructure:"base_url"`
		APIKey             string  `mapstructure:"api_key"`
		Model              string  `mapstructure:"model"`
		TranscriptionModel string  `mapstructure:"transcription_model"`
		MaxTokens          int     `mapstructure:"max_tokens"`
		Temperature        float32 `mapstructure:"temperature"`
		Timeout            int     `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"genai"`

	FactCheck struct {
		BaseURL      string `mapstructure:"base_url"`
		APIKey       string `mapstructure:"api_key"`
		LanguageCode string `mapstructure:"language_code"`
		Timeout      int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"fact_check"`
}

type StatusConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
	RedisTTL   int `mapstructure:"redis_ttl"` // milliseconds
	SNS        struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
