// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml (or ./config.yaml), merges
// config.<APP_ENVIRONMENT>.yaml on top, then applies environment overrides.
// Every key can be overridden by its upper-cased env name, e.g.
// MEDIA_FRAME_COUNT or TRIAGE_TASK_TIMEOUT.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working directory.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders left in yaml string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honours the conventional credential variable names.
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.FactCheck.APIKey == "" {
		if val := os.Getenv("FACT_CHECK_API_KEY"); val != "" {
			cfg.APIs.FactCheck.APIKey = val
		}
	}

	if cfg.APIs.GenAI.APIKey == "" {
		for _, name := range []string{"GENAI_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY"} {
			if val := os.Getenv(name); val != "" {
				cfg.APIs.GenAI.APIKey = val
				break
			}
		}
	}

	if cfg.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.Redis.Address = val
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vigil")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.request_timeout", 600000)
	v.SetDefault("server.read_timeout", 15000)

	v.SetDefault("camunda.enabled", false)
	v.SetDefault("camunda.broker_address", "")
	v.SetDefault("camunda.max_jobs_active", 5)
	v.SetDefault("camunda.timeout", 600000)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("media.fetcher", "ytdlp")
	v.SetDefault("media.ytdlp_path", "yt-dlp")
	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.ffprobe_path", "ffprobe")
	v.SetDefault("media.temp_root", filepath.Join(os.TempDir(), "vigil"))
	v.SetDefault("media.max_attempts", 3)
	v.SetDefault("media.base_delay", 500)
	v.SetDefault("media.max_delay", 8000)
	v.SetDefault("media.frame_mode", "count")
	v.SetDefault("media.frame_count", 5)
	v.SetDefault("media.frame_interval_seconds", 5)
	v.SetDefault("media.synthetic_on_acquisition_failure", false)
	v.SetDefault("media.max_download_bytes", int64(512<<20))

	v.SetDefault("triage.task_timeout", 60000)
	v.SetDefault("triage.max_parallel", 0)

	v.SetDefault("gate.enabled", true)
	v.SetDefault("gate.lookup_confidence", 0.9)
	v.SetDefault("gate.cache_ttl", 3600000)

	v.SetDefault("consolidation.timeout", 120000)
	v.SetDefault("consolidation.max_retries", 2)
	v.SetDefault("verdict.timeout", 120000)
	v.SetDefault("verdict.max_retries", 2)

	v.SetDefault("apis.genai.base_url", "")
	v.SetDefault("apis.genai.api_key", "")
	v.SetDefault("apis.genai.model", "gpt-4o-mini")
	v.SetDefault("apis.genai.transcription_model", "whisper-1")
	v.SetDefault("apis.genai.max_tokens", 1500)
	v.SetDefault("apis.genai.temperature", 0.2)
	v.SetDefault("apis.genai.timeout", 60000)
	v.SetDefault("apis.fact_check.base_url", "https://factchecktools.googleapis.com/v1alpha1/claims:search")
	v.SetDefault("apis.fact_check.api_key", "")
	v.SetDefault("apis.fact_check.language_code", "en")
	v.SetDefault("apis.fact_check.timeout", 10000)

	v.SetDefault("status.buffer_size", 64)
	v.SetDefault("status.redis_ttl", 600000)
	v.SetDefault("status.sns.enabled", false)
	v.SetDefault("status.sns.region", "us-east-1")
	v.SetDefault("status.sns.topic_arn", "")

	v.SetDefault("observability.service_name", "vigil")
	v.SetDefault("observability.jaeger_endpoint", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// applyDefaults repairs values a config file set to something unusable.
func applyDefaults(cfg *Config) {
	if cfg.Media.MaxAttempts <= 0 {
		cfg.Media.MaxAttempts = 1
	}
	if cfg.Media.FrameCount <= 0 {
		cfg.Media.FrameCount = 5
	}
	if cfg.Media.FrameIntervalSeconds <= 0 {
		cfg.Media.FrameIntervalSeconds = 5
	}
	if cfg.Media.MaxDelay < cfg.Media.BaseDelay {
		cfg.Media.MaxDelay = cfg.Media.BaseDelay
	}
	if cfg.Triage.TaskTimeout <= 0 {
		cfg.Triage.TaskTimeout = 60000
	}
	if cfg.Consolidation.MaxRetries < 0 {
		cfg.Consolidation.MaxRetries = 0
	}
	if cfg.Verdict.MaxRetries < 0 {
		cfg.Verdict.MaxRetries = 0
	}
	if cfg.Status.BufferSize <= 0 {
		cfg.Status.BufferSize = 64
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Media.Fetcher {
	case "ytdlp", "http":
	default:
		return fmt.Errorf("media.fetcher must be ytdlp or http, got %q", cfg.Media.Fetcher)
	}

	switch cfg.Media.FrameMode {
	case "count", "interval":
	default:
		return fmt.Errorf("media.frame_mode must be count or interval, got %q", cfg.Media.FrameMode)
	}

	if cfg.Media.TempRoot == "" {
		return fmt.Errorf("media.temp_root is required")
	}

	if cfg.Gate.LookupConfidence < 0 || cfg.Gate.LookupConfidence > 1 {
		return fmt.Errorf("gate.lookup_confidence must be within [0,1], got %v", cfg.Gate.LookupConfidence)
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda.enabled")
	}

	if cfg.Redis.Enabled && cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when redis.enabled")
	}

	if cfg.Status.SNS.Enabled && cfg.Status.SNS.TopicARN == "" {
		return fmt.Errorf("status.sns.topic_arn is required when status.sns.enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
