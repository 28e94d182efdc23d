// Package images prepares project image references for multimodal model
// requests. Private-storage images are downloaded and inlined; public
// images pass through as URLs.
package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/knearme/showcase/core/errors"
	"github.com/knearme/showcase/core/project"
	"github.com/knearme/showcase/core/providers"
)

const (
	// DefaultCacheSize bounds the downloaded-bytes cache by entry count.
	DefaultCacheSize = 64

	// DefaultFetchTimeout bounds a single image download.
	DefaultFetchTimeout = 15 * time.Second

	// maxImageBytes rejects downloads too large to inline.
	maxImageBytes = 20 << 20
)

// Config controls image preparation.
type Config struct {
	// PrivateHosts are glob patterns for hosts whose URLs require
	// download-and-inline, e.g. "*.storage.internal".
	PrivateHosts []string `yaml:"private_hosts"`

	CacheSize    int           `yaml:"cache_size"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// DefaultConfig returns preparation defaults with no private hosts, so
// every image passes through as a URL.
func DefaultConfig() Config {
	return Config{
		CacheSize:    DefaultCacheSize,
		FetchTimeout: DefaultFetchTimeout,
	}
}

// Fetcher resolves image references into provider attachments, caching
// downloaded bytes across turns.
type Fetcher struct {
	private []glob.Glob
	cache   *lru.Cache[string, cachedImage]
	client  *http.Client
	logger  *slog.Logger
}

type cachedImage struct {
	mediaType string
	data      []byte
}

// NewFetcher creates a fetcher from config. An invalid private-host
// pattern is an error.
func NewFetcher(cfg Config, logger *slog.Logger) (*Fetcher, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	private := make([]glob.Glob, 0, len(cfg.PrivateHosts))
	for _, pattern := range cfg.PrivateHosts {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid private host pattern %q: %w", pattern, err)
		}
		private = append(private, g)
	}

	cache, err := lru.New[string, cachedImage](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create image cache: %w", err)
	}

	return &Fetcher{
		private: private,
		cache:   cache,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		logger:  logger,
	}, nil
}

// Prepare converts image references into provider attachments in display
// order. A failed private download drops that image with a warning rather
// than failing the whole request.
func (f *Fetcher) Prepare(ctx context.Context, refs []project.ImageRef) []providers.ImageAttachment {
	attachments := make([]providers.ImageAttachment, 0, len(refs))
	for _, ref := range refs {
		if ref.URL == "" {
			continue
		}

		if !f.isPrivate(ref.URL) {
			attachments = append(attachments, providers.ImageAttachment{URL: ref.URL})
			continue
		}

		img, err := f.fetch(ctx, ref.URL)
		if err != nil {
			f.logger.Warn("image fetch failed, skipping",
				"image_id", ref.ID,
				"tier", errors.GetTier(err).String(),
				"error", err,
			)
			continue
		}
		attachments = append(attachments, providers.ImageAttachment{
			MediaType: img.mediaType,
			Data:      img.data,
		})
	}
	return attachments
}

func (f *Fetcher) isPrivate(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	for _, g := range f.private {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// fetch downloads image bytes, serving repeats from the cache.
func (f *Fetcher) fetch(ctx context.Context, rawURL string) (cachedImage, error) {
	if img, ok := f.cache.Get(rawURL); ok {
		return img, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return cachedImage{}, errors.WrapWithTier(errors.TierValidation, "build image request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return cachedImage{}, errors.Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cachedImage{}, errors.NewTieredError(errors.TierValidation,
			fmt.Sprintf("image fetch returned status %d", resp.StatusCode), nil).
			WithStatusCode(resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return cachedImage{}, errors.Classify(err)
	}
	if len(data) > maxImageBytes {
		return cachedImage{}, errors.NewTieredError(errors.TierValidation,
			"image too large to inline", nil)
	}

	mediaType := resp.Header.Get("Content-Type")
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = http.DetectContentType(data)
	}

	img := cachedImage{mediaType: mediaType, data: data}
	f.cache.Add(rawURL, img)
	return img, nil
}
