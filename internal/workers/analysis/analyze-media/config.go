// internal/workers/analysis/analyze-media/config.go
package analyzemedia

import "time"

type Config struct {
	// Timeout bounds one whole pipeline run started from a job.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Minute,
	}
}
