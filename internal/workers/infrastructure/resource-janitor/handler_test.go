package resourcejanitor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestLogger struct{}

func (l *TestLogger) Debug(msg string, fields map[string]interface{}) {}
func (l *TestLogger) Warn(msg string, fields map[string]interface{})  {}

func newJanitor(t *testing.T) (*Janitor, string) {
	t.Helper()
	root := t.TempDir()
	j, err := New(&Config{Root: root}, "req-1", &TestLogger{})
	require.NoError(t, err)
	return j, root
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestNew_CreatesRunDir(t *testing.T) {
	j, root := newJanitor(t)
	assert.Equal(t, filepath.Join(root, "req-1"), j.Dir())

	info, err := os.Stat(j.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = New(&Config{Root: root}, "req-1", nil)
	assert.ErrorIs(t, err, ErrRunDirExists)

	_, err = New(&Config{Root: root}, "", nil)
	assert.Error(t, err)
}

func TestReleaseAll_RemovesEverything(t *testing.T) {
	j, root := newJanitor(t)

	inside := filepath.Join(j.Dir(), "frame_0.jpg")
	touch(t, inside)
	outside := filepath.Join(root, "stray.tmp")
	touch(t, outside)

	j.Track(inside)
	j.Track(outside)
	j.Track(inside)
	assert.Equal(t, []string{inside, outside}, j.Tracked())

	require.NoError(t, j.ReleaseAll())

	for _, p := range []string{inside, outside, j.Dir()} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), p)
	}
	assert.Empty(t, j.Tracked())
}

func TestReleaseAll_Idempotent(t *testing.T) {
	j, _ := newJanitor(t)
	touch(t, filepath.Join(j.Dir(), "a"))
	j.Track(filepath.Join(j.Dir(), "a"))

	require.NoError(t, j.ReleaseAll())
	require.NoError(t, j.ReleaseAll())

	// Recreating the run dir after release must not be undone by a later call.
	require.NoError(t, os.MkdirAll(j.Dir(), 0o700))
	require.NoError(t, j.ReleaseAll())
	_, err := os.Stat(j.Dir())
	assert.NoError(t, err)
}

func TestReleaseAll_MissingPathsAreNotErrors(t *testing.T) {
	j, _ := newJanitor(t)
	j.Track(filepath.Join(j.Dir(), "never-written.jpg"))
	assert.NoError(t, j.ReleaseAll())
}

func TestTrack_AfterReleaseRemovesImmediately(t *testing.T) {
	j, root := newJanitor(t)
	require.NoError(t, j.ReleaseAll())

	late := filepath.Join(root, "late.jpg")
	touch(t, late)
	j.Track(late)

	_, err := os.Stat(late)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, j.Tracked())
}

func TestTrack_Concurrent(t *testing.T) {
	j, _ := newJanitor(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := filepath.Join(j.Dir(), filepath.Base(t.Name())+string(rune('a'+i%26))+".tmp")
			j.Track(p)
		}(i)
	}
	wg.Wait()

	assert.Len(t, j.Tracked(), 26)
	assert.NoError(t, j.ReleaseAll())
}
