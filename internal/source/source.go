// Package source acquires video assets for the transcription pipeline. The
// mechanics of locating and downloading content from a platform (logins,
// anti-scraping countermeasures) live behind an external command; this package
// only defines the collaborator contract and thin adapters, so the pipeline
// can always run against a locally supplied file.
package source

import (
	"context"
	"fmt"
	"os"
)

// Media is an acquired video asset plus optional platform metadata
type Media struct {
	VideoPath string `json:"media_path"`
	Caption   string `json:"caption"`
	Username  string `json:"username"`
}

// Service locates a video for a source identifier and materializes it under
// destDir
type Service interface {
	Fetch(ctx context.Context, url, destDir string) (*Media, error)
}

// LocalSource treats the source identifier as a path to a local video file.
// It is the required fallback when no downloader is configured.
type LocalSource struct{}

// NewLocalSource creates a local-file source
func NewLocalSource() *LocalSource {
	return &LocalSource{}
}

// Fetch validates that the identifier names a non-empty local file
func (s *LocalSource) Fetch(_ context.Context, url, _ string) (*Media, error) {
	info, err := os.Stat(url)
	if err != nil {
		return nil, fmt.Errorf("local video not accessible: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("local video path is a directory: %s", url)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("local video is empty: %s", url)
	}
	return &Media{VideoPath: url}, nil
}
