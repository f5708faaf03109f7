// Package hub fetches vocabulary artifacts (rank files) into a local cache.
//
// Loading is the only I/O the tokenizer ever performs: once an artifact is
// parsed, everything downstream is pure computation over immutable tables.
// Fetches are safe against concurrent processes pulling the same artifact.
package hub

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DefaultDirCreationPerm is used when creating cache directories.
const DefaultDirCreationPerm = os.FileMode(0755)

// cacheEnvVar overrides the cache location when set.
const cacheEnvVar = "BPEKIT_CACHE"

// CacheDir returns the directory artifacts are cached under: $BPEKIT_CACHE
// if set, otherwise <user cache dir>/bpekit.
func CacheDir() string {
	if dir := os.Getenv(cacheEnvVar); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "bpekit")
}

// Fetch returns the local path of the artifact named name, downloading it
// from url into the cache on first use. Subsequent calls hit the cached copy
// without touching the network. The download is atomic and serialized
// against other processes fetching the same artifact.
func Fetch(ctx context.Context, url, name string) (string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", errors.Errorf("artifact name %q must be a bare file name", name)
	}
	filePath := filepath.Join(CacheDir(), name)
	if err := lockedDownload(ctx, url, filePath); err != nil {
		return "", errors.WithMessagef(err, "fetching artifact %q", name)
	}
	return filePath, nil
}
