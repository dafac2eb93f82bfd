// Package session tracks, per session, when each resource path was last
// requested. The push filter uses these timestamps to test temporal
// causality between a referring request and a referred one.
package session

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// record holds one session's path → last-request-time map. sync.Map gives
// atomic per-key updates, so overlapping requests in the same session need
// no external locking.
type record struct {
	seen sync.Map // path string -> time.Time
}

// Tracker maintains causality records for live sessions. The registry is an
// LRU keyed by session ID: session lifecycle is owned elsewhere, so eviction
// of the least recently active sessions stands in for expiry and bounds
// memory.
type Tracker struct {
	mu      sync.Mutex
	records *lru.Cache[string, *record]
}

// NewTracker returns a Tracker retaining causality records for at most
// maxSessions sessions.
func NewTracker(maxSessions int) (*Tracker, error) {
	c, err := lru.New[string, *record](maxSessions)
	if err != nil {
		return nil, err
	}
	return &Tracker{records: c}, nil
}

// Touch records now as the latest request time for path within session,
// overwriting any prior value. Only the most recent visit matters for
// causality.
func (t *Tracker) Touch(session, path string, now time.Time) {
	t.get(session, true).seen.Store(path, now)
}

// LastSeen returns the time path was last requested within session.
// Absence is a legitimate value, not a failure.
func (t *Tracker) LastSeen(session, path string) (time.Time, bool) {
	r := t.get(session, false)
	if r == nil {
		return time.Time{}, false
	}
	v, ok := r.seen.Load(path)
	if !ok {
		return time.Time{}, false
	}
	return v.(time.Time), true
}

// Len returns the number of sessions currently tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.records.Len()
}

// get resolves session's record, creating it when create is set. Lookup and
// insert share one critical section so racing requests in a brand-new
// session agree on a single record.
func (t *Tracker) get(session string, create bool) *record {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.records.Get(session); ok {
		return r
	}
	if !create {
		return nil
	}
	r := &record{}
	t.records.Add(session, r)
	return r
}
