package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"rendergate/pkg/logger"
)

// Request is the normalized, immutable request handed to middleware and the
// rendering runtime. Its URL is always a syntactically valid absolute URL.
type Request struct {
	Method string
	URL    *url.URL
	// Header carries single-valued semantics: repeated transport values are
	// collapsed per standard header rules.
	Header http.Header
	// Body is nil for GET/HEAD requests and when body adaptation is skipped.
	Body io.Reader
	// HalfDuplex marks a streaming body that the underlying transport must
	// send without waiting for response bytes.
	HalfDuplex bool
	// Ctx is canceled when the originating connection is torn down.
	Ctx context.Context
	// ClientIP is the original client address, resolved from the
	// forwarded-for header or the connection peer. It is deliberately not a
	// header.
	ClientIP string
	// Key is the transport correlation key; the owning Adapter keeps the
	// cancellation cleanup for it.
	Key uint64
}

// Options configures an Adapter.
type Options struct {
	// SkipBody suppresses body adaptation regardless of method.
	SkipBody bool
	// AllowedDomains is the forwarded-host allow-list, as origin strings.
	AllowedDomains []string
}

// Adapter builds normalized requests from transport requests. It owns the
// side table of cancellation cleanups, keyed by transport correlation key,
// so no cleanup state hides on the request objects themselves.
type Adapter struct {
	skipBody bool
	trust    *TrustPolicy

	mu       sync.Mutex
	cleanups map[uint64]func()
}

// NewAdapter builds an Adapter. Malformed allow-list entries are logged and
// skipped rather than rejected.
func NewAdapter(opts Options) *Adapter {
	trust, errs := NewTrustPolicy(opts.AllowedDomains)
	for _, err := range errs {
		logger.Warn("invalid_allowed_domain", "error", err)
	}
	return &Adapter{
		skipBody: opts.SkipBody,
		trust:    trust,
		cleanups: make(map[uint64]func()),
	}
}

// Adapt translates a transport request into a normalized request. It never
// fails: any parse problem degrades to connection-provided values.
func (a *Adapter) Adapt(t *TransportRequest) *Request {
	proto := a.resolveProtocol(t)
	host := a.resolveHost(t, proto)
	host = appendForwardedPort(host, firstForwarded(t.Header, "X-Forwarded-Port"))

	u := assembleURL(proto, host, t.RequestURI)
	if u == nil {
		// Forwarded values produced garbage; retry from the connection
		// alone. This path always succeeds.
		u = assembleURL(connProtocol(t.Conn), t.Host, t.RequestURI)
		if u == nil {
			u = &url.URL{Scheme: connProtocol(t.Conn), Host: "localhost", Path: "/"}
		}
	}

	req := &Request{
		Method:   t.Method,
		URL:      u,
		Header:   collapseHeader(t.Header),
		ClientIP: a.resolveClientIP(t),
	}
	a.attachBody(req, t)
	a.wireCancellation(req, t)
	return req
}

// Release runs and removes the cancellation cleanup registered for key, if
// any. Safe to call for unknown keys and more than once.
func (a *Adapter) Release(key uint64) {
	a.mu.Lock()
	fn := a.cleanups[key]
	delete(a.cleanups, key)
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (a *Adapter) resolveProtocol(t *TransportRequest) string {
	if v := firstForwarded(t.Header, "X-Forwarded-Proto"); v != "" {
		return v
	}
	return connProtocol(t.Conn)
}

func (a *Adapter) resolveHost(t *TransportRequest, proto string) string {
	if fwd := firstForwarded(t.Header, "X-Forwarded-Host"); fwd != "" {
		if a.trust.Allows(proto, fwd) {
			return fwd
		}
		// Untrusted forwarded host: discard silently, never an error.
		logger.Debug("forwarded_host_discarded", "host", fwd)
	}
	return t.Host
}

func (a *Adapter) resolveClientIP(t *TransportRequest) string {
	if v := firstForwarded(t.Header, "X-Forwarded-For"); v != "" {
		return v
	}
	if t.Conn != nil {
		return t.Conn.RemoteAddr()
	}
	return ""
}

// attachBody applies the body rules: no body for HEAD/GET or when skipped;
// override bytes, then override value (JSON), then a pass-through stream.
// Streaming bodies set the half-duplex marker the transport requires.
func (a *Adapter) attachBody(req *Request, t *TransportRequest) {
	if a.skipBody || t.Method == http.MethodGet || t.Method == http.MethodHead {
		return
	}
	if o := t.Override; o != nil {
		if len(o.Bytes) > 0 {
			req.Body = bytes.NewReader(o.Bytes)
			return
		}
		if o.Value != nil {
			if b, err := json.Marshal(o.Value); err == nil {
				req.Body = bytes.NewReader(b)
				return
			}
			// Unmarshalable override value degrades to the stream rules.
		}
		if o.Stream != nil {
			req.Body = o.Stream
			req.HalfDuplex = true
			return
		}
	}
	if t.Body != nil {
		req.Body = t.Body
		req.HalfDuplex = true
	}
}

// wireCancellation allocates the per-request abort bridge. Re-adapting the
// same transport object runs and replaces any dangling cleanup first so
// listeners never accumulate.
func (a *Adapter) wireCancellation(req *Request, t *TransportRequest) {
	if t.Key == 0 {
		t.Key = NextKey()
	}
	req.Key = t.Key

	a.mu.Lock()
	prev := a.cleanups[t.Key]
	delete(a.cleanups, t.Key)
	a.mu.Unlock()
	if prev != nil {
		prev()
	}

	ctx, cleanup := newAbortBridge(t.Conn)
	req.Ctx = ctx
	a.mu.Lock()
	a.cleanups[t.Key] = cleanup
	a.mu.Unlock()
}

// firstForwarded returns the first comma-separated value of a forwarded
// header, trimmed, or "".
func firstForwarded(h http.Header, name string) string {
	v := h.Get(name)
	if v == "" {
		return ""
	}
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// connProtocol derives the protocol from connection encryption.
func connProtocol(c Conn) string {
	if c != nil && c.Encrypted() {
		return "https"
	}
	return "http"
}

// appendForwardedPort appends a forwarded port unless the host already
// embeds one.
func appendForwardedPort(host, port string) string {
	if host == "" || port == "" {
		return host
	}
	if strings.LastIndexByte(host, ':') > strings.LastIndexByte(host, ']') {
		return host
	}
	return host + ":" + port
}

// assembleURL builds an absolute URL, returning nil when the inputs do not
// form one.
func assembleURL(proto, host, requestURI string) *url.URL {
	if host == "" {
		return nil
	}
	if requestURI == "" {
		requestURI = "/"
	}
	u, err := url.Parse(proto + "://" + host + requestURI)
	if err != nil || u.Host == "" {
		return nil
	}
	return u
}

// collapseHeader flattens a multimap header to single-valued semantics:
// repeated values join with ", ", cookies with "; ".
func collapseHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vals := range h {
		switch {
		case len(vals) == 0:
		case len(vals) == 1:
			out.Set(k, vals[0])
		case http.CanonicalHeaderKey(k) == "Cookie":
			out.Set(k, strings.Join(vals, "; "))
		default:
			out.Set(k, strings.Join(vals, ", "))
		}
	}
	return out
}
