package push

import (
	"net"
	"net/http"
	"net/url"
)

// Complete runs the association learning step once per completed request.
// It records the response's cache validators on the request's target and,
// when the referring resource was requested in the same session within the
// causality window, adds a referrer → target association edge.
//
// The referrer header plus a short recency window is a cheap heuristic
// proxy for "that page caused this request": a false positive costs one
// wasted push, a false negative one missed optimization. Every early
// return below is therefore silent.
func (f *Filter) Complete(st *Started, r *http.Request, respHeader http.Header) {
	target, sess := st.target, st.sess
	f.store.RecordValidators(target.Path(), respHeader.Get("ETag"), respHeader.Get("Last-Modified"))

	referer := r.Referer()
	if referer == "" {
		return
	}
	u, err := url.Parse(referer)
	if err != nil {
		// Unparsable referrer is treated as no referrer.
		return
	}
	if !sameHost(u.Host, r.Host) {
		return
	}

	// The referrer must itself have been tracked as a request, or there is
	// nothing to associate to.
	refTarget := f.store.Get(u.Path)
	if refTarget == nil {
		return
	}
	if sess == "" {
		return
	}
	last, ok := f.tracker.LastSeen(sess, refTarget.Path())
	if !ok || f.now().Sub(last) > f.delay {
		// Never seen, or too stale, to imply causality.
		return
	}

	if f.store.AddAssociation(refTarget.Path(), target) {
		f.log.Debug("associate", "parent", refTarget.Path(), "child", target.Path())
	}
}

// sameHost compares two authority values ignoring any port.
func sameHost(a, b string) bool {
	ha, hb := hostOnly(a), hostOnly(b)
	return ha != "" && ha == hb
}

func hostOnly(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}
