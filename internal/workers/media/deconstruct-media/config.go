// internal/workers/media/deconstruct-media/config.go
package deconstructmedia

import "time"

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	FrameMode     string
	FrameCount    int
	FrameInterval float64 // seconds

	// SyntheticOnAcquisitionFailure turns an exhausted download into a
	// degraded bundle instead of a fatal error.
	SyntheticOnAcquisitionFailure bool
}

func LoadConfig() *Config {
	return &Config{
		MaxAttempts:   3,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      8 * time.Second,
		FrameMode:     FrameModeCount,
		FrameCount:    5,
		FrameInterval: 5,
	}
}
