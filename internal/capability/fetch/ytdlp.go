// Package fetch implements the Fetcher capability: yt-dlp for hosted videos and
// plain HTTP for direct media links.
package fetch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"vigil-workers/internal/capability"
	"vigil-workers/internal/models"
)

type YtDlpConfig struct {
	BinaryPath       string
	MaxDownloadBytes int64
}

type YtDlp struct {
	config *YtDlpConfig
}

func NewYtDlp(config *YtDlpConfig) *YtDlp {
	if config.BinaryPath == "" {
		config.BinaryPath = "yt-dlp"
	}
	return &YtDlp{config: config}
}

type YtDlpInfo struct {
	Title       string `json:"title"`
	Uploader    string `json:"uploader"`
	Description string `json:"description"`
	Filename    string `json:"_filename"`
	Ext         string `json:"ext"`
}

func (y *YtDlp) Args(url, destDir string) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--print-json",
		"-f", "best[ext=mp4]/best",
		"-o", filepath.Join(destDir, "media.%(ext)s"),
	}
	if y.config.MaxDownloadBytes > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(y.config.MaxDownloadBytes, 10))
	}
	return append(args, url)
}

// Fetch downloads the best single-file format into destDir.
func (y *YtDlp) Fetch(ctx context.Context, url, destDir string) (*capability.FetchedMedia, error) {
	cmd := exec.CommandContext(ctx, y.config.BinaryPath, y.Args(url, destDir)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("yt-dlp: %w", err)
		}
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, msg)
	}

	info, err := ParseInfo(out)
	if err != nil {
		return nil, err
	}

	path := info.Filename
	if path == "" {
		path = filepath.Join(destDir, "media."+info.Ext)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("yt-dlp reported %s but it is missing: %w", path, err)
	}

	return &capability.FetchedMedia{
		Path: path,
		Info: models.MediaInfo{
			Title:       info.Title,
			Uploader:    info.Uploader,
			Description: info.Description,
		},
	}, nil
}

// ParseInfo reads the last JSON document printed by --print-json.
func ParseInfo(out []byte) (*YtDlpInfo, error) {
	var last []byte
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) > 0 && line[0] == '{' {
			last = append(last[:0], line...)
		}
	}
	if len(last) == 0 {
		return nil, fmt.Errorf("yt-dlp printed no metadata")
	}

	var info YtDlpInfo
	if err := json.Unmarshal(last, &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	return &info, nil
}
