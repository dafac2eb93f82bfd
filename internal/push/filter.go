// Package push learns, from live traffic, which secondary resources are
// causally associated with a primary resource, and proactively pushes those
// resources to clients that request the primary one over HTTP/2.
//
// The filter is pure best-effort optimization: it never alters the response
// body, and any internal fault degrades to a missed push, never to a failed
// request.
package push

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/usestring/pushcache/internal/config"
	"github.com/usestring/pushcache/internal/graph"
	"github.com/usestring/pushcache/internal/session"
)

const (
	// pusherHeader marks pushed requests so origins can tell them apart.
	pusherHeader = "X-Pusher"
	pusherName   = "pushcache.Filter"

	sessionCookie = "pushcache_session"
)

// SessionFunc resolves the session key for a request. An empty key disables
// causality tracking and learning for that request.
type SessionFunc func(w http.ResponseWriter, r *http.Request) string

// Filter wraps a handler with push scheduling on request start and
// association learning on request end. Both hooks side-effect only the
// shared stores and the outgoing push channel.
type Filter struct {
	store     *graph.Store
	tracker   *session.Tracker
	delay     time.Duration
	sessionFn SessionFunc
	now       func() time.Time
	log       *slog.Logger
}

// Option configures a Filter.
type Option func(*Filter)

// WithSessionFunc replaces the default cookie-based session resolution.
func WithSessionFunc(fn SessionFunc) Option {
	return func(f *Filter) {
		f.sessionFn = fn
	}
}

// WithLogger sets the filter's logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(f *Filter) {
		f.log = l
	}
}

// NewFilter returns a Filter over the given association graph and session
// tracker. The causality window comes from cfg.AssociateDelay.
func NewFilter(store *graph.Store, tracker *session.Tracker, cfg *config.Config, opts ...Option) *Filter {
	f := &Filter{
		store:     store,
		tracker:   tracker,
		delay:     cfg.AssociateDelay,
		sessionFn: cookieSession,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Close clears the association graph. Call at server shutdown.
func (f *Filter) Close() {
	f.store.Clear()
}

// Wrap returns a handler that runs Start before delegating to next and
// Complete after next returns.
func (f *Filter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := f.Start(w, r)
		next.ServeHTTP(w, r)
		f.Complete(st, r, w.Header())
	})
}

// Started carries the per-request state from Start to Complete.
type Started struct {
	target *graph.Target
	sess   string
}

// Start runs the push scheduling step for an incoming request: it records
// the visit in the session causality tracker, resolves the request's
// target, and emits push directives for its associated resources.
// Dispatch stacks that cannot use Wrap call Start before handling a
// request and Complete once it has finished.
func (f *Filter) Start(w http.ResponseWriter, r *http.Request) *Started {
	path := r.URL.Path
	sess := f.sessionFn(w, r)

	// Record the visit first, so later requests in this session can
	// attribute causality to it.
	if sess != "" {
		f.tracker.Touch(sess, path, f.now())
	}

	target := f.store.GetOrCreate(path)
	f.schedulePushes(w, r, target)
	return &Started{target: target, sess: sess}
}

// schedulePushes emits one push directive per resource reachable from
// target in the association graph, breadth first. A transport without push
// support, or a target without children, is a silent no-op.
func (f *Filter) schedulePushes(w http.ResponseWriter, r *http.Request, target *graph.Target) {
	pusher, ok := w.(http.Pusher)
	if !ok || !target.HasChildren() {
		return
	}

	// A push is never more aggressive than the triggering request: child
	// validators are attached only when the request itself was conditional.
	conditional := r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != ""

	// Edges are learned heuristically, so the graph can contain cycles;
	// the visited set keeps the traversal inside the reachable subset.
	visited := map[string]bool{target.Path(): true}
	queue := []*graph.Target{target}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, child := range parent.Children() {
			if visited[child.Path()] {
				continue
			}
			visited[child.Path()] = true
			queue = append(queue, child)
			f.push(pusher, r, child, conditional)
		}
	}
}

// push submits one fire-and-forget push directive. Failures are logged and
// dropped; delivery is the transport's problem.
func (f *Filter) push(pusher http.Pusher, r *http.Request, child *graph.Target, conditional bool) {
	hdr := http.Header{}
	hdr.Set(pusherHeader, pusherName)
	if conditional {
		etag, lastModified := child.Validators()
		if etag != "" {
			hdr.Set("If-None-Match", etag)
		}
		if lastModified != "" {
			hdr.Set("If-Modified-Since", lastModified)
		}
	}
	if err := pusher.Push(child.Path(), &http.PushOptions{Header: hdr}); err != nil {
		f.log.Debug("push failed", "path", child.Path(), "error", err)
		return
	}
	f.log.Debug("push", "path", child.Path(), "for", r.URL.Path)
}

// cookieSession is the default SessionFunc: it rides an existing session
// cookie and mints one when absent. Session lifecycle proper is owned by
// the application; this only needs a stable per-client key.
func cookieSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := newSessionID()
	if id == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return id
}

func newSessionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}
