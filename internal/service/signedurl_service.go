package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/reelflow/reelflow-api/internal/apperr"
)

// URLSigner issues a time-limited access URL for a private storage object.
type URLSigner interface {
	PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// SignedURLResolver mediates all read access to private media. Entries are
// cached per storage path and considered expired a buffer window before
// their real expiry so a URL never dies mid-use.
type SignedURLResolver interface {
	Resolve(ctx context.Context, paths []string) (map[string]string, error)
	Invalidate(path string)
}

type cachedURL struct {
	url       string
	expiresAt time.Time
}

type signedURLCache struct {
	signer URLSigner
	ttl    time.Duration
	buffer time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cachedURL
	group   singleflight.Group
}

func NewSignedURLCache(signer URLSigner, ttl, buffer time.Duration) SignedURLResolver {
	return &signedURLCache{
		signer:  signer,
		ttl:     ttl,
		buffer:  buffer,
		now:     time.Now,
		entries: make(map[string]cachedURL),
	}
}

// Resolve signs every path independently; one failing path never blocks the
// others. Successful paths are always present in the returned map, failures
// are joined into the returned error.
func (c *signedURLCache) Resolve(ctx context.Context, paths []string) (map[string]string, error) {
	urls := make(map[string]string, len(paths))
	var errs []error

	for _, path := range paths {
		url, err := c.resolveOne(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		urls[path] = url
	}

	return urls, errors.Join(errs...)
}

func (c *signedURLCache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

func (c *signedURLCache) resolveOne(ctx context.Context, path string) (string, error) {
	if url, ok := c.lookup(path); ok {
		return url, nil
	}

	// Concurrent requests for the same uncached path collapse into one
	// upstream signing call; every waiter gets the same URL.
	v, err, _ := c.group.Do(path, func() (interface{}, error) {
		if url, ok := c.lookup(path); ok {
			return url, nil
		}

		url, err := c.signer.PresignGetURL(ctx, path, c.ttl)
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("signing %s: %w", path, apperr.ErrExternalAPI)
		}

		c.mu.Lock()
		c.entries[path] = cachedURL{url: url, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()

		return url, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (c *signedURLCache) lookup(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	if !ok {
		return "", false
	}
	if !c.now().Before(entry.expiresAt.Add(-c.buffer)) {
		delete(c.entries, path)
		return "", false
	}
	return entry.url, true
}
