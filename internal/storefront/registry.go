package storefront

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain"
)

// Registry keeps one Store per cart id.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	ttl    time.Duration
	now    func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		stores: make(map[string]*Store),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *Registry) Get(cartID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[cartID]
	return s, ok
}

// Load installs an authoritative cart. An existing session is replaced
// wholesale, or reconciled with its pending operations when merge is set.
func (r *Registry) Load(cart domain.Cart, merge bool) *Store {
	r.mu.Lock()
	s, ok := r.stores[cart.ID]
	if !ok {
		s = NewStore(cart)
		r.stores[cart.ID] = s
	}
	r.mu.Unlock()
	switch {
	case !ok:
	case merge:
		s.Reconcile(cart)
	default:
		s.Replace(cart)
	}
	return s
}

// GetOrLoad returns the held store for cart.ID untouched, installing cart
// only when no session exists. Lazy loads use it so a fetch that raced
// another request never overwrites that request's optimistic changes.
func (r *Registry) GetOrLoad(cart domain.Cart) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[cart.ID]; ok {
		return s
	}
	s := NewStore(cart)
	r.stores[cart.ID] = s
	return s
}

func (r *Registry) Drop(cartID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, cartID)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep drops sessions idle for longer than the ttl. Sessions with in-flight
// operations or live subscribers are kept.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for id, s := range r.stores {
		lastUsed, busy := s.idleSince()
		if busy || lastUsed.After(cutoff) {
			continue
		}
		delete(r.stores, id)
		dropped++
	}
	return dropped
}

// Run sweeps every interval until ctx ends.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
