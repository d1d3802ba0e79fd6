// Package probe offers a cached, read-only view of lock records for
// dashboards and health checks that poll lock state far more often than it
// changes. Results may lag the store by up to the cache TTL; anything that
// needs the authoritative record must read through the coordinator instead.
package probe

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/lpoller/go-hasp/v1/lockrec"
	"github.com/lpoller/go-hasp/v1/store"
)

// DefaultTTL is how long a probed record is served from cache.
const DefaultTTL = time.Second

// Prober answers lock state queries from a ristretto cache, falling back to
// the store on a miss.
type Prober struct {
	store store.Store
	cache *ristretto.Cache
	ttl   time.Duration
}

// Option configures a Prober.
type Option func(*Prober)

// WithTTL overrides the cache TTL. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(p *Prober) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// New returns a Prober over the given store.
func New(s store.Store, opts ...Option) (*Prober, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,     // number of keys to track frequency of (10k).
		MaxCost:     1 << 20, // maximum cost of cache (1MB by default).
		BufferItems: 64,      // number of keys per Get buffer.
	})
	if err != nil {
		return nil, err
	}
	p := &Prober{store: s, cache: cache, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Probe returns the lock record for lockID. The boolean is false when no
// record exists. Hits are served from cache; only positive results are
// cached.
func (p *Prober) Probe(ctx context.Context, lockID string) (lockrec.Lock, bool, error) {
	if err := ctx.Err(); err != nil {
		return lockrec.Lock{}, false, err
	}
	if v, ok := p.cache.Get(lockID); ok {
		return v.(lockrec.Lock), true, nil
	}
	body, version, err := p.store.Read(ctx, lockID)
	if errors.Is(err, store.ErrNotFound) {
		return lockrec.Lock{}, false, nil
	}
	if err != nil {
		return lockrec.Lock{}, false, err
	}
	lk, err := lockrec.UnmarshalWire(body, version)
	if err != nil {
		return lockrec.Lock{}, false, err
	}
	p.cache.SetWithTTL(lockID, lk, int64(len(body)), p.ttl)
	p.cache.Wait()
	return lk, true, nil
}

// Invalidate drops a cached record, forcing the next Probe to the store.
func (p *Prober) Invalidate(lockID string) {
	p.cache.Del(lockID)
	p.cache.Wait()
}

// Close releases the cache.
func (p *Prober) Close() {
	p.cache.Close()
}
