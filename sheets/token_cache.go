package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/karupanerura/batchloader"
	"github.com/karupanerura/batchloader/expiration"
	"github.com/karupanerura/batchloader/loader/singleflightloader"
	"github.com/karupanerura/batchloader/source"
	"github.com/karupanerura/batchloader/storage/memstorage"
)

// TokenAcquirer issues new tokens.
type TokenAcquirer interface {
	AcquireToken(ctx context.Context) (Token, error)
}

// TokenCache reuses a token until it is about to expire.
// Concurrent callers of an expired or missing token share one request to the token endpoint.
type TokenCache struct {
	key   string
	cache *batchloader.LoadingCache[string, Token]
}

// NewTokenCache wraps acquirer. Tokens are replaced leeway before their expiry.
func NewTokenCache(acquirer TokenAcquirer, key string, leeway time.Duration, clock batchloader.Clock) *TokenCache {
	storage := memstorage.New(
		memstorage.WithBucketsSize[string, Token](1),
		memstorage.WithClock[string, Token](clock),
		memstorage.WithExpirationPolicy[string, Token](expiration.Leeway(leeway)),
	)
	src := &source.FunctionsSource[string, Token]{
		GetFunc: func(ctx context.Context, key string) (*batchloader.CacheEntry[string, Token], error) {
			token, err := acquirer.AcquireToken(ctx)
			if err != nil {
				return nil, err
			}
			return &batchloader.CacheEntry[string, Token]{
				Entry:     batchloader.Entry[string, Token]{Key: key, Value: token},
				ExpiresAt: token.ExpiresAt,
			}, nil
		},
	}
	return &TokenCache{
		key: key,
		cache: &batchloader.LoadingCache[string, Token]{
			Storage: storage,
			Loader:  singleflightloader.NewSingleFlightLoader[string, Token](storage, src),
		},
	}
}

// AcquireToken returns the cached token, requesting a new one when needed.
func (c *TokenCache) AcquireToken(ctx context.Context) (Token, error) {
	entry, err := c.cache.GetOrLoad(ctx, c.key)
	if err != nil {
		return Token{}, err
	}
	if entry == nil {
		return Token{}, fmt.Errorf("sheets token: %w: no token issued", ErrMalformedResponse)
	}
	return entry.Value, nil
}

// Invalidate drops the cached token, e.g. after the API rejected it.
func (c *TokenCache) Invalidate(ctx context.Context) error {
	return c.cache.Invalidate(ctx, c.key)
}
