// Package hub fetches tokenizer definition files from a Hugging Face
// compatible endpoint into a local cache.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samcharles93/tokcount/internal/logger"
)

const (
	DefaultEndpoint = "https://huggingface.co"
	DefaultRevision = "main"
	// DefaultMaxBytes caps a single downloaded file.
	DefaultMaxBytes int64 = 64 << 20
)

var (
	ErrInvalidRepoID = errors.New("invalid repository id")
	ErrRepoNotFound  = errors.New("repository not found or access denied")
	ErrNotCached     = errors.New("file is not in the local cache and offline mode is enabled")
)

// Client resolves repository files to local paths, downloading them on a
// cache miss.
type Client struct {
	Endpoint string
	Token    string
	CacheDir string
	Offline  bool
	MaxBytes int64
	// Progress receives a download progress bar when non-nil.
	Progress   io.Writer
	HTTPClient *http.Client
}

// Fetch returns the local path of filename in repo at revision.
func (c *Client) Fetch(ctx context.Context, repo, revision, filename string) (string, error) {
	log := logger.FromContext(ctx).With("repo", repo, "revision", revision, "file", filename)

	if revision == "" {
		revision = DefaultRevision
	}
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("invalid file name %q", filename)
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		return "", fmt.Errorf("cache dir is required")
	}
	dir, err := RepoDir(c.CacheDir, repo, revision)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)

	cached, err := isCached(path)
	if err != nil {
		return "", err
	}
	if cached {
		log.Debug("cache hit", "path", path)
		return path, nil
	}
	if c.Offline {
		return "", fmt.Errorf("%s/%s@%s: %w", repo, filename, revision, ErrNotCached)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	rawURL, err := c.fileURL(repo, revision, filename)
	if err != nil {
		return "", err
	}
	log.Info("downloading", "url", redactURL(rawURL))

	f := fetcher{
		client:   c.httpClient(),
		token:    c.Token,
		limit:    c.maxBytes(),
		progress: c.Progress,
		label:    repo + "/" + filename,
	}
	start := time.Now()
	if err := f.ensureFile(ctx, path, rawURL); err != nil {
		return "", fmt.Errorf("fetch %s from %s: %w", filename, repo, err)
	}
	log.Debug("downloaded", "path", path, "elapsed", time.Since(start).String())
	return path, nil
}

func (c *Client) fileURL(repo, revision, filename string) (string, error) {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	base, err := url.Parse(endpoint)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid hub endpoint %q", endpoint)
	}
	return base.JoinPath(repo, "resolve", revision, filename).String(), nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

func (c *Client) maxBytes() int64 {
	if c.MaxBytes > 0 {
		return c.MaxBytes
	}
	return DefaultMaxBytes
}

func isCached(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return info.Size() > 0, nil
}
