package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	CacheDir      string
	Refresh       bool
	Client        *http.Client
	Locks         FileLockFactory
	RetryInterval time.Duration
	Logger        *slog.Logger
}

// Fetcher resolves a dataset source to a local file. HTTP(S) sources are
// downloaded once into the cache directory; other processes sharing the
// cache wait on a lock next to the cached file.
type Fetcher struct {
	cacheDir      string
	refresh       bool
	client        *http.Client
	locks         FileLockFactory
	retryInterval time.Duration
	logger        *slog.Logger
}

// NewFetcher creates a Fetcher, filling defaults for unset options.
func NewFetcher(opts FetcherOptions) *Fetcher {
	f := &Fetcher{
		cacheDir:      opts.CacheDir,
		refresh:       opts.Refresh,
		client:        opts.Client,
		locks:         opts.Locks,
		retryInterval: opts.RetryInterval,
		logger:        opts.Logger,
	}
	if f.cacheDir == "" {
		f.cacheDir = DefaultCacheDir()
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 10 * time.Minute}
	}
	if f.locks == nil {
		f.locks = FlockFactory{}
	}
	if f.retryInterval <= 0 {
		f.retryInterval = 100 * time.Millisecond
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// DefaultCacheDir is the user cache directory for downloaded datasets.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "accords")
	}
	return filepath.Join(os.TempDir(), "accords")
}

// Fetch returns a local path for source. Plain paths and file:// URLs are
// returned as is after checking they exist.
func (f *Fetcher) Fetch(ctx context.Context, source string) (string, error) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// no scheme, or a Windows drive letter
		return localPath(source)
	}

	switch u.Scheme {
	case "file":
		return localPath(u.Path)
	case "http", "https":
		return f.download(ctx, u)
	}
	return "", fmt.Errorf("unsupported source scheme %q", u.Scheme)
}

// CachePath is where source is cached.
func (f *Fetcher) CachePath(source string) string {
	sum := sha256.Sum256([]byte(source))
	ext := path.Ext(source)
	if u, err := url.Parse(source); err == nil {
		ext = path.Ext(u.Path)
	}
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8])+ext)
}

func (f *Fetcher) download(ctx context.Context, u *url.URL) (string, error) {
	source := u.String()
	target := f.CachePath(source)

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	lock := f.locks.New(target + ".lock")
	locked, err := lock.TryLockContext(ctx, f.retryInterval)
	if err != nil {
		return "", fmt.Errorf("failed to lock cache entry: %w", err)
	}
	if !locked {
		return "", fmt.Errorf("cache entry %s is locked", target)
	}
	defer func() { _ = lock.Unlock() }()

	if !f.refresh {
		if st, err := os.Stat(target); err == nil && st.Size() > 0 {
			f.logger.Debug("dataset cache hit", "url", source, "path", target, "size", humanize.Bytes(uint64(st.Size())))
			return target, nil
		}
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", source, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: unexpected status %s", source, resp.Status)
	}

	tmp, err := os.CreateTemp(f.cacheDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", source, err)
	}
	if n == 0 {
		return "", errors.New("downloaded file is empty")
	}

	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("failed to move download into cache: %w", err)
	}

	f.logger.Info("dataset downloaded",
		"url", source,
		"path", target,
		"size", humanize.Bytes(uint64(n)),
		"duration", time.Since(start).String())
	return target, nil
}

func localPath(p string) (string, error) {
	st, err := os.Stat(p)
	if err != nil {
		return "", err
	}
	if st.IsDir() {
		return "", fmt.Errorf("%s is a directory", p)
	}
	return p, nil
}
