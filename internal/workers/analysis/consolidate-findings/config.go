// internal/workers/analysis/consolidate-findings/config.go
package consolidatefindings

import "time"

type Config struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    120 * time.Second,
		MaxRetries: 2,
		BaseDelay:  100 * time.Millisecond,
	}
}
