// internal/workers/analysis/adjudicate-verdict/config.go
package adjudicateverdict

import "time"

type Config struct {
	Timeout    time.Duration
	MaxRetries int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    120 * time.Second,
		MaxRetries: 2,
	}
}
