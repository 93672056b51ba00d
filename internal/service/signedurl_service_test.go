package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reelflow/reelflow-api/internal/apperr"
)

type countingSigner struct {
	calls  atomic.Int64
	delay  time.Duration
	failOn string
}

func (s *countingSigner) PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if key == s.failOn {
		return "", errors.New("presign failed")
	}
	return "https://signed.example.com/" + key, nil
}

func newTestCache(signer URLSigner, now *time.Time) *signedURLCache {
	return &signedURLCache{
		signer:  signer,
		ttl:     time.Hour,
		buffer:  5 * time.Minute,
		now:     func() time.Time { return *now },
		entries: make(map[string]cachedURL),
	}
}

func TestResolveCachesWithinTTL(t *testing.T) {
	signer := &countingSigner{}
	now := time.Now()
	cache := newTestCache(signer, &now)

	urls, err := cache.Resolve(context.Background(), []string{"posts/1/a"})
	assert.NoError(t, err)
	assert.Equal(t, "https://signed.example.com/posts/1/a", urls["posts/1/a"])

	// 54 minutes in, still inside ttl minus buffer.
	now = now.Add(54 * time.Minute)
	urls, err = cache.Resolve(context.Background(), []string{"posts/1/a"})
	assert.NoError(t, err)
	assert.Equal(t, "https://signed.example.com/posts/1/a", urls["posts/1/a"])
	assert.Equal(t, int64(1), signer.calls.Load())
}

func TestResolveExpiresBufferEarly(t *testing.T) {
	signer := &countingSigner{}
	now := time.Now()
	cache := newTestCache(signer, &now)

	_, err := cache.Resolve(context.Background(), []string{"posts/1/a"})
	assert.NoError(t, err)

	// 56 minutes in, inside the 5 minute buffer before the real expiry.
	now = now.Add(56 * time.Minute)
	_, err = cache.Resolve(context.Background(), []string{"posts/1/a"})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), signer.calls.Load())
}

func TestResolveCollapsesConcurrentRequests(t *testing.T) {
	signer := &countingSigner{delay: 20 * time.Millisecond}
	now := time.Now()
	cache := newTestCache(signer, &now)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			urls, err := cache.Resolve(context.Background(), []string{"posts/1/a"})
			assert.NoError(t, err)
			assert.Equal(t, "https://signed.example.com/posts/1/a", urls["posts/1/a"])
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), signer.calls.Load())
}

func TestResolvePartialFailure(t *testing.T) {
	signer := &countingSigner{failOn: "posts/1/b"}
	now := time.Now()
	cache := newTestCache(signer, &now)

	urls, err := cache.Resolve(context.Background(), []string{"posts/1/a", "posts/1/b", "posts/1/c"})
	assert.ErrorIs(t, err, apperr.ErrExternalAPI)
	assert.Contains(t, err.Error(), "posts/1/b")

	// The failing path never blocks the others.
	assert.Len(t, urls, 2)
	assert.Contains(t, urls, "posts/1/a")
	assert.Contains(t, urls, "posts/1/c")
}

func TestResolveFailureIsNotCached(t *testing.T) {
	signer := &countingSigner{failOn: "posts/1/a"}
	now := time.Now()
	cache := newTestCache(signer, &now)

	_, err := cache.Resolve(context.Background(), []string{"posts/1/a"})
	assert.Error(t, err)

	signer.failOn = ""
	urls, err := cache.Resolve(context.Background(), []string{"posts/1/a"})
	assert.NoError(t, err)
	assert.Equal(t, "https://signed.example.com/posts/1/a", urls["posts/1/a"])
}

func TestInvalidateForcesResign(t *testing.T) {
	signer := &countingSigner{}
	now := time.Now()
	cache := newTestCache(signer, &now)

	_, err := cache.Resolve(context.Background(), []string{"posts/1/a"})
	assert.NoError(t, err)

	cache.Invalidate("posts/1/a")

	_, err = cache.Resolve(context.Background(), []string{"posts/1/a"})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), signer.calls.Load())
}

func TestResolveManyPathsIndependently(t *testing.T) {
	signer := &countingSigner{}
	now := time.Now()
	cache := newTestCache(signer, &now)

	paths := make([]string, 10)
	for i := range paths {
		paths[i] = fmt.Sprintf("posts/1/%d", i)
	}

	urls, err := cache.Resolve(context.Background(), paths)
	assert.NoError(t, err)
	assert.Len(t, urls, 10)
	assert.Equal(t, int64(10), signer.calls.Load())

	urls, err = cache.Resolve(context.Background(), paths)
	assert.NoError(t, err)
	assert.Len(t, urls, 10)
	assert.Equal(t, int64(10), signer.calls.Load())
}
