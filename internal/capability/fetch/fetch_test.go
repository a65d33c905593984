package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonhttp "vigil-workers/internal/common/http"
)

func TestParseInfo(t *testing.T) {
	out := []byte("[info] Downloading\n" +
		`{"title":"Flood in the city","uploader":"newsdesk","_filename":"/tmp/run/media.mp4","ext":"mp4"}` + "\n")

	info, err := ParseInfo(out)
	require.NoError(t, err)
	assert.Equal(t, "Flood in the city", info.Title)
	assert.Equal(t, "newsdesk", info.Uploader)
	assert.Equal(t, "/tmp/run/media.mp4", info.Filename)

	_, err = ParseInfo([]byte("ERROR: unsupported URL\n"))
	assert.Error(t, err)
}

func TestYtDlpArgs(t *testing.T) {
	y := NewYtDlp(&YtDlpConfig{MaxDownloadBytes: 1024})
	args := y.Args("https://youtu.be/x", "/tmp/run")

	assert.Equal(t, "https://youtu.be/x", args[len(args)-1])
	assert.Contains(t, args, "--max-filesize")
	assert.Contains(t, args, filepath.Join("/tmp/run", "media.%(ext)s"))
}

func TestHTTPFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clip.webm":
			_, _ = w.Write([]byte("fake-video-bytes"))
		case "/big.mp4":
			_, _ = w.Write(make([]byte, 4096))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	fetcher := NewHTTP(commonhttp.NewClient(5*time.Second), 1024)

	t.Run("downloads with source extension", func(t *testing.T) {
		dir := t.TempDir()
		media, err := fetcher.Fetch(context.Background(), server.URL+"/clip.webm", dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "media.webm"), media.Path)

		data, err := os.ReadFile(media.Path)
		require.NoError(t, err)
		assert.Equal(t, "fake-video-bytes", string(data))
		assert.Empty(t, media.Info.Title)
	})

	t.Run("rejects oversize body", func(t *testing.T) {
		_, err := fetcher.Fetch(context.Background(), server.URL+"/big.mp4", t.TempDir())
		assert.Error(t, err)
	})

	t.Run("surfaces status errors", func(t *testing.T) {
		_, err := fetcher.Fetch(context.Background(), server.URL+"/missing.mp4", t.TempDir())
		var statusErr *commonhttp.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	})
}
