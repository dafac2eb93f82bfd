// Package graph holds the association graph learned from live traffic: one
// node per resource path, with directed edges toward the resources that
// requests for it tend to cause. The graph tracks relationships and cache
// validators only, never response payloads.
package graph

import (
	"fmt"
	"sync"
)

// Target is the node for one resource path. Children are append-only: an
// edge, once learned, is never removed. Validators are last-write-wins
// snapshots from the most recently completed response for the path.
type Target struct {
	path string

	mu           sync.RWMutex
	children     map[string]*Target
	etag         string
	lastModified string
}

// Path returns the resource path identifying this target.
func (t *Target) Path() string { return t.path }

// Children returns a snapshot of the associated child targets.
func (t *Target) Children() []*Target {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.children) == 0 {
		return nil
	}
	out := make([]*Target, 0, len(t.children))
	for _, c := range t.children {
		out = append(out, c)
	}
	return out
}

// HasChildren reports whether any association has been learned for this
// target.
func (t *Target) HasChildren() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.children) > 0
}

// Validators returns the last known entity tag and last-modified value for
// the target's resource. Either may be empty.
func (t *Target) Validators() (etag, lastModified string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.etag, t.lastModified
}

func (t *Target) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fmt.Sprintf("Target{p=%s,e=%s,m=%s,a=%d}", t.path, t.etag, t.lastModified, len(t.children))
}

// Store maps resource paths to their canonical Target. All methods are safe
// for concurrent use; no lock is ever held across a graph traversal, so
// contention stays confined to individual key updates.
type Store struct {
	mu      sync.RWMutex
	targets map[string]*Target
}

// NewStore returns an empty association graph.
func NewStore() *Store {
	return &Store{targets: make(map[string]*Target)}
}

// GetOrCreate returns the canonical Target for path, creating it on first
// sight. Concurrent first requests for the same path all receive the same
// instance: lookup and insert happen in a single critical section.
func (s *Store) GetOrCreate(path string) *Target {
	s.mu.RLock()
	t, ok := s.targets[path]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.targets[path]; ok {
		return t
	}
	t = &Target{path: path, children: make(map[string]*Target)}
	s.targets[path] = t
	return t
}

// Get returns the Target for path, or nil if the path has never been
// requested.
func (s *Store) Get(path string) *Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targets[path]
}

// RecordValidators overwrites the validators on path's Target with the
// values from its just-completed response. Callers pass the header values
// as seen, empty included: the latest response wins.
func (s *Store) RecordValidators(path, etag, lastModified string) {
	t := s.GetOrCreate(path)
	t.mu.Lock()
	t.etag = etag
	t.lastModified = lastModified
	t.mu.Unlock()
}

// AddAssociation inserts child into parentPath's children if absent and
// reports whether the edge is new. Re-observing an existing edge is a
// no-op; the return value is for diagnostics only.
func (s *Store) AddAssociation(parentPath string, child *Target) bool {
	parent := s.GetOrCreate(parentPath)
	parent.mu.Lock()
	defer parent.mu.Unlock()

	if _, ok := parent.children[child.path]; ok {
		return false
	}
	parent.children[child.path] = child
	return true
}

// Len returns the number of tracked targets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.targets)
}

// Clear drops every target. Used at server shutdown.
func (s *Store) Clear() {
	s.mu.Lock()
	s.targets = make(map[string]*Target)
	s.mu.Unlock()
}
