package core

import "sync"

// InflightGuard allows at most one pending request per key.
type InflightGuard struct {
	pending sync.Map
}

// Acquire claims key.  When ok is false a request for key is already in
// flight; otherwise release must be called once the request finishes.
func (g *InflightGuard) Acquire(key string) (release func(), ok bool) {
	if _, loaded := g.pending.LoadOrStore(key, struct{}{}); loaded {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { g.pending.Delete(key) }) }, true
}

// Pending reports whether a request for key is in flight.
func (g *InflightGuard) Pending(key string) bool {
	_, ok := g.pending.Load(key)
	return ok
}
