package fetch

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"vigil-workers/internal/capability"
	commonhttp "vigil-workers/internal/common/http"
	"vigil-workers/internal/models"
)

// HTTP fetches direct media links. It reports no title, so the claim gate
// has nothing to query for media fetched this way.
type HTTP struct {
	client   *commonhttp.Client
	maxBytes int64
}

func NewHTTP(client *commonhttp.Client, maxBytes int64) *HTTP {
	return &HTTP{client: client, maxBytes: maxBytes}
}

func (h *HTTP) Fetch(ctx context.Context, rawURL, destDir string) (*capability.FetchedMedia, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 6 {
		ext = ".mp4"
	}
	dest := filepath.Join(destDir, "media"+ext)

	if _, err := h.client.Download(ctx, rawURL, dest, h.maxBytes); err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}

	return &capability.FetchedMedia{
		Path: dest,
		Info: models.MediaInfo{},
	}, nil
}
