package hub

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	defaultCacheDirName = "tokcount"
	hubDirName          = "hub"
	maxRepoPartLen      = 96
)

var repoPartPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ResolveCacheDir returns the cache root. An explicit dir wins; otherwise
// the user cache dir (or ~/.cache) plus "tokcount" is used.
func ResolveCacheDir(cacheDir string) (string, error) {
	if strings.TrimSpace(cacheDir) != "" {
		return expandUser(cacheDir)
	}
	base, err := os.UserCacheDir()
	if err != nil {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return "", fmt.Errorf("failed to resolve cache dir: %w", err)
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, defaultCacheDirName), nil
}

// ValidateRepoID checks a hub repository id of the form "name" or
// "owner/name".
func ValidateRepoID(repo string) error {
	if repo == "" {
		return fmt.Errorf("%w: empty repository id", ErrInvalidRepoID)
	}
	parts := strings.Split(repo, "/")
	if len(parts) > 2 {
		return fmt.Errorf("%w: %q has more than one '/'", ErrInvalidRepoID, repo)
	}
	for _, part := range parts {
		if err := validatePart(part); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidRepoID, repo, err)
		}
	}
	return nil
}

// ValidateRevision checks a branch, tag or commit name.
func ValidateRevision(rev string) error {
	if err := validatePart(rev); err != nil {
		return fmt.Errorf("invalid revision %q: %v", rev, err)
	}
	return nil
}

func validatePart(part string) error {
	switch {
	case part == "":
		return fmt.Errorf("empty component")
	case len(part) > maxRepoPartLen:
		return fmt.Errorf("component longer than %d characters", maxRepoPartLen)
	case !repoPartPattern.MatchString(part):
		return fmt.Errorf("invalid characters in %q", part)
	case strings.Contains(part, ".."), strings.Contains(part, "--"):
		return fmt.Errorf("%q contains '..' or '--'", part)
	case strings.HasSuffix(part, ".") || strings.HasSuffix(part, "-"):
		return fmt.Errorf("%q ends with '.' or '-'", part)
	}
	return nil
}

// RepoDir returns the cache directory for one revision of a repository:
// <cacheDir>/hub/models--owner--name/<revision>.
func RepoDir(cacheDir, repo, revision string) (string, error) {
	if err := ValidateRepoID(repo); err != nil {
		return "", err
	}
	if err := ValidateRevision(revision); err != nil {
		return "", err
	}
	root := filepath.Join(cacheDir, hubDirName)
	dir := filepath.Join(root, "models--"+strings.ReplaceAll(repo, "/", "--"), revision)
	if err := ensureUnderRoot(root, dir); err != nil {
		return "", err
	}
	return dir, nil
}

func ensureUnderRoot(root, path string) error {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("path %s escapes cache root: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %s escapes cache root", path)
	}
	return nil
}

func expandUser(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home dir: %w", err)
	}
	if trimmed == "~" {
		return home, nil
	}
	if strings.HasPrefix(trimmed, "~/") {
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Join(home, trimmed[1:]), nil
}
