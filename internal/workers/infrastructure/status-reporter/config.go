// internal/workers/infrastructure/status-reporter/config.go
package statusreporter

import "time"

type Config struct {
	// BufferSize bounds the per-request queue; overflow drops messages.
	BufferSize      int
	RedisTTL        time.Duration
	DeliveryTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		BufferSize:      64,
		RedisTTL:        10 * time.Minute,
		DeliveryTimeout: 5 * time.Second,
	}
}
