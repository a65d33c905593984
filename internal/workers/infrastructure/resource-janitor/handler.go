// internal/workers/infrastructure/resource-janitor/handler.go
package resourcejanitor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var ErrRunDirExists = errors.New("RUN_DIR_EXISTS")

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Janitor owns the temporary artifacts of a single run. Everything it tracks
// is removed exactly once, on ReleaseAll.
type Janitor struct {
	dir    string
	logger Logger

	mu       sync.Mutex
	tracked  []string
	seen     map[string]struct{}
	released bool
	result   error
}

// New creates <root>/<requestID>. The directory must not already exist.
func New(config *Config, requestID string, log Logger) (*Janitor, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request id is required")
	}
	if err := os.MkdirAll(config.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}

	dir := filepath.Join(config.Root, requestID)
	if err := os.Mkdir(dir, 0o700); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunDirExists, dir)
		}
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	return &Janitor{
		dir:    dir,
		logger: log,
		seen:   make(map[string]struct{}),
	}, nil
}

// Dir is the per-run directory all artifacts should be written under.
func (j *Janitor) Dir() string {
	return j.dir
}

// Track registers path for removal. Paths tracked after ReleaseAll are
// removed immediately, which covers late writes from abandoned tasks.
func (j *Janitor) Track(path string) {
	if path == "" {
		return
	}

	j.mu.Lock()
	if j.released {
		j.mu.Unlock()
		j.remove(path)
		return
	}
	if _, ok := j.seen[path]; !ok {
		j.seen[path] = struct{}{}
		j.tracked = append(j.tracked, path)
	}
	j.mu.Unlock()
}

// Tracked returns the currently registered paths in registration order.
func (j *Janitor) Tracked() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.tracked))
	copy(out, j.tracked)
	return out
}

// ReleaseAll removes every tracked path, newest first, then the run
// directory. Later calls return the first call's result without touching
// the filesystem.
func (j *Janitor) ReleaseAll() error {
	j.mu.Lock()
	if j.released {
		j.mu.Unlock()
		return j.result
	}
	j.released = true
	paths := j.tracked
	j.tracked = nil
	j.mu.Unlock()

	var errs []error
	for i := len(paths) - 1; i >= 0; i-- {
		if err := j.remove(paths[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := j.remove(j.dir); err != nil {
		errs = append(errs, err)
	}

	result := errors.Join(errs...)
	j.mu.Lock()
	j.result = result
	j.mu.Unlock()

	if j.logger != nil {
		j.logger.Debug("released run artifacts", map[string]interface{}{
			"dir":      j.dir,
			"released": len(paths),
			"failed":   len(errs),
		})
	}
	return result
}

func (j *Janitor) remove(path string) error {
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		if j.logger != nil {
			j.logger.Warn("failed to remove artifact", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
