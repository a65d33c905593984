// internal/workers/infrastructure/resource-janitor/config.go
package resourcejanitor

import (
	"os"
	"path/filepath"
)

type Config struct {
	// Root holds one directory per in-flight request.
	Root string
}

func LoadConfig() *Config {
	return &Config{
		Root: filepath.Join(os.TempDir(), "vigil"),
	}
}
