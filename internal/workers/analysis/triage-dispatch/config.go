// internal/workers/analysis/triage-dispatch/config.go
package triagedispatch

import "time"

type Config struct {
	TaskTimeout time.Duration
	// MaxParallel caps concurrently running tasks; 0 means no cap.
	MaxParallel int
}

func LoadConfig() *Config {
	return &Config{
		TaskTimeout: 60 * time.Second,
	}
}
