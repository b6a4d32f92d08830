package cache

import (
	"context"
	"sync"
	"time"
)

// Pending collects keys to invalidate once a transaction commits.
type Pending struct {
	mu   sync.Mutex
	keys []string
}

func (p *Pending) add(keys ...string) {
	p.mu.Lock()
	p.keys = append(p.keys, keys...)
	p.mu.Unlock()
}

// Flush invalidates every collected key. Call it only after commit.
func (p *Pending) Flush(ctx context.Context) {
	p.mu.Lock()
	keys := p.keys
	p.keys = nil
	p.mu.Unlock()
	for _, key := range keys {
		Invalidate(ctx, key)
	}
}

type pendingKey struct{}

// WithPending attaches p to ctx so transaction-bound repositories can find it.
func WithPending(ctx context.Context, p *Pending) context.Context {
	return context.WithValue(ctx, pendingKey{}, p)
}

// PendingFrom returns the Pending attached to ctx, or nil.
func PendingFrom(ctx context.Context) *Pending {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(pendingKey{}).(*Pending)
	return p
}

// Scope is how a repository reaches the cache. The zero value reads through
// Redis and invalidates immediately. A transaction scope never reads or
// populates the cache, and repeats its invalidations after commit.
type Scope struct {
	inTx    bool
	pending *Pending
}

// TxScope returns the scope for a repository bound to a transaction whose
// context is ctx.
func TxScope(ctx context.Context) Scope {
	return Scope{inTx: true, pending: PendingFrom(ctx)}
}

// InTx reports whether s belongs to a transaction.
func (s Scope) InTx() bool { return s.inTx }

// Aside is cache.Aside outside a transaction and a plain fetch inside one.
func (s Scope) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if s.inTx {
		return fetch()
	}
	return Aside(ctx, key, dest, ttl, fetch)
}

// Invalidate drops keys now and, inside a transaction, again after commit so
// a reader that cached the pre-commit value does not keep it.
func (s Scope) Invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		Invalidate(ctx, key)
	}
	if s.pending != nil {
		s.pending.add(keys...)
	}
}
