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

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

type fetcher struct {
	client   *http.Client
	token    string
	limit    int64
	progress io.Writer
	label    string
}

// ensureFile downloads rawURL into a uniquely named sibling of path and
// renames it into place once complete. JSON files must parse.
func (f fetcher) ensureFile(ctx context.Context, path, rawURL string) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := f.download(ctx, rawURL, out); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if strings.HasSuffix(path, ".json") {
		if err := validateJSONFile(tmp); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize download: %w", err)
	}
	return nil
}

func (f fetcher) download(ctx context.Context, rawURL string, out io.Writer) error {
	safeURL := redactURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", safeURL, stripURLError(err))
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", safeURL, stripURLError(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w (status %d)", safeURL, ErrRepoNotFound, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%s: unexpected status %d", safeURL, resp.StatusCode)
	}

	if f.limit > 0 && resp.ContentLength > f.limit {
		return fmt.Errorf("%s: content length %d exceeds limit of %d bytes", safeURL, resp.ContentLength, f.limit)
	}

	var body io.Reader = resp.Body
	if f.limit > 0 {
		body = io.LimitReader(resp.Body, f.limit+1)
	}
	dst := out
	var bar *progress
	if f.progress != nil && resp.ContentLength > 0 {
		bar = newProgress(f.progress, f.label, resp.ContentLength)
		dst = io.MultiWriter(out, bar)
	}

	n, err := io.Copy(dst, body)
	if bar != nil {
		bar.finish()
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", safeURL, stripURLError(err))
	}
	if f.limit > 0 && n > f.limit {
		return fmt.Errorf("%s: body exceeds limit of %d bytes", safeURL, f.limit)
	}
	return nil
}

func validateJSONFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if !json.Valid(data) {
		return errors.New("downloaded file is not valid JSON")
	}
	return nil
}

// redactURL drops the query string, fragment and user info.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}

// stripURLError unwraps *url.Error, whose message embeds the full request
// URL.
func stripURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
