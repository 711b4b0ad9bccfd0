package browsersession

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jrsteele09/elearn-web/internal/metrics"
)

var _ Repo = (*TTLRepo)(nil)

// TTLRepo evicts sessions that have not been used for the idle TTL. Eviction tears the store down;
// the browser's tokens stay in token storage so a later request can hydrate again.
type TTLRepo struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, *Session]
}

func NewTTLRepo(idleTTL time.Duration) *TTLRepo {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *Session](idleTTL),
	)
	cache.OnInsertion(func(_ context.Context, _ *ttlcache.Item[string, *Session]) {
		metrics.ActiveSessionsGauge.Inc()
	})
	cache.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		metrics.ActiveSessionsGauge.Dec()
		item.Value().Store.Teardown()
	})
	go cache.Start()
	return &TTLRepo{cache: cache}
}

func (r *TTLRepo) Get(id string) (*Session, bool) {
	item := r.cache.Get(id)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (r *TTLRepo) GetOrCreate(id string, create func(id string) *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item := r.cache.Get(id); item != nil {
		return item.Value()
	}
	s := create(id)
	r.cache.Set(id, s, ttlcache.DefaultTTL)
	return s
}

func (r *TTLRepo) Delete(id string) {
	r.cache.Delete(id)
}

func (r *TTLRepo) Len() int {
	return r.cache.Len()
}

// Close stops expiry and tears down every held session.
func (r *TTLRepo) Close() {
	r.cache.Stop()
	r.cache.DeleteAll()
}
