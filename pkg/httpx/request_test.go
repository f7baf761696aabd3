package httpx

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"
)

type fakeConn struct {
	remote    string
	encrypted bool
	ch        chan struct{}
	closed    bool
}

func (c *fakeConn) RemoteAddr() string { return c.remote }
func (c *fakeConn) Encrypted() bool    { return c.encrypted }
func (c *fakeConn) CloseNotify() <-chan struct{} {
	if c.ch == nil {
		return nil
	}
	return c.ch
}
func (c *fakeConn) Closed() bool { return c.closed }

func transportReq(method, uri string, hdr http.Header) *TransportRequest {
	if hdr == nil {
		hdr = make(http.Header)
	}
	return &TransportRequest{
		Method:     method,
		RequestURI: uri,
		Header:     hdr,
		Host:       "backend.local:8080",
		Conn:       &fakeConn{remote: "10.0.0.9:51234"},
	}
}

func TestForwardedProtoFirstValue(t *testing.T) {
	a := NewAdapter(Options{})
	hdr := http.Header{}
	hdr.Set("X-Forwarded-Proto", "https, http,http")
	req := a.Adapt(transportReq(http.MethodGet, "/x", hdr))
	if req.URL.Scheme != "https" {
		t.Fatalf("expected scheme https, got %q", req.URL.Scheme)
	}
}

func TestUntrustedForwardedHostDiscarded(t *testing.T) {
	a := NewAdapter(Options{AllowedDomains: []string{"https://trusted.example.com"}})
	hdr := http.Header{}
	hdr.Set("X-Forwarded-Proto", "https")
	hdr.Set("X-Forwarded-Host", "evil.example.net")
	req := a.Adapt(transportReq(http.MethodGet, "/x", hdr))
	if req.URL.Host != "backend.local:8080" {
		t.Fatalf("expected connection host, got %q", req.URL.Host)
	}
}

func TestTrustedForwardedHostApplied(t *testing.T) {
	a := NewAdapter(Options{AllowedDomains: []string{"https://*.example.com"}})
	hdr := http.Header{}
	hdr.Set("X-Forwarded-Proto", "https")
	hdr.Set("X-Forwarded-Host", "app.example.com, internal")
	req := a.Adapt(transportReq(http.MethodGet, "/x?a=1", hdr))
	if req.URL.Host != "app.example.com" {
		t.Fatalf("expected forwarded host, got %q", req.URL.Host)
	}
	if req.URL.RawQuery != "a=1" {
		t.Fatalf("query lost: %q", req.URL.RawQuery)
	}
}

func TestForwardedPortAppended(t *testing.T) {
	a := NewAdapter(Options{AllowedDomains: []string{"https://site.example.com"}})
	hdr := http.Header{}
	hdr.Set("X-Forwarded-Proto", "https")
	hdr.Set("X-Forwarded-Host", "site.example.com")
	hdr.Set("X-Forwarded-Port", "8443")
	req := a.Adapt(transportReq(http.MethodGet, "/", hdr))
	if req.URL.Host != "site.example.com:8443" {
		t.Fatalf("expected port appended, got %q", req.URL.Host)
	}

	// host already embeds a port: forwarded port ignored
	hdr.Set("X-Forwarded-Host", "site.example.com:9000")
	a2 := NewAdapter(Options{AllowedDomains: []string{"https://site.example.com:9000"}})
	req2 := a2.Adapt(transportReq(http.MethodGet, "/", hdr))
	if req2.URL.Host != "site.example.com:9000" {
		t.Fatalf("expected embedded port kept, got %q", req2.URL.Host)
	}
}

func TestURLAssemblyFallsBackToConnection(t *testing.T) {
	// the forwarded host is allowed but not a valid URL host
	a := NewAdapter(Options{AllowedDomains: []string{"bad host"}})
	hdr := http.Header{}
	hdr.Set("X-Forwarded-Host", "bad host")
	req := a.Adapt(transportReq(http.MethodGet, "/p", hdr))
	if req.URL == nil || req.URL.Host != "backend.local:8080" {
		t.Fatalf("expected connection fallback URL, got %v", req.URL)
	}
	if req.URL.Scheme != "http" {
		t.Fatalf("expected connection-derived scheme, got %q", req.URL.Scheme)
	}
}

func TestNoBodyForGetHeadOrSkip(t *testing.T) {
	body := strings.NewReader("payload")
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		tr := transportReq(method, "/", nil)
		tr.Body = body
		req := NewAdapter(Options{}).Adapt(tr)
		if req.Body != nil {
			t.Fatalf("%s: expected no body", method)
		}
	}
	tr := transportReq(http.MethodPost, "/", nil)
	tr.Body = body
	req := NewAdapter(Options{SkipBody: true}).Adapt(tr)
	if req.Body != nil {
		t.Fatalf("skipBody: expected no body")
	}
}

func TestBodyOverridePrecedence(t *testing.T) {
	a := NewAdapter(Options{})

	tr := transportReq(http.MethodPost, "/", nil)
	tr.Override = &BodyOverride{Bytes: []byte("verbatim")}
	req := a.Adapt(tr)
	got, _ := io.ReadAll(req.Body)
	if string(got) != "verbatim" || req.HalfDuplex {
		t.Fatalf("bytes override: got %q halfduplex=%v", got, req.HalfDuplex)
	}

	tr = transportReq(http.MethodPost, "/", nil)
	tr.Override = &BodyOverride{Value: map[string]int{"n": 1}}
	req = a.Adapt(tr)
	got, _ = io.ReadAll(req.Body)
	if string(got) != `{"n":1}` {
		t.Fatalf("value override: got %q", got)
	}

	tr = transportReq(http.MethodPost, "/", nil)
	tr.Override = &BodyOverride{Stream: bytes.NewReader([]byte("streamed"))}
	req = a.Adapt(tr)
	if !req.HalfDuplex {
		t.Fatalf("stream override must mark half-duplex")
	}

	tr = transportReq(http.MethodPost, "/", nil)
	tr.Body = strings.NewReader("transport")
	req = a.Adapt(tr)
	got, _ = io.ReadAll(req.Body)
	if string(got) != "transport" || !req.HalfDuplex {
		t.Fatalf("transport body: got %q halfduplex=%v", got, req.HalfDuplex)
	}
}

func TestClientIPResolution(t *testing.T) {
	a := NewAdapter(Options{})
	hdr := http.Header{}
	hdr.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req := a.Adapt(transportReq(http.MethodGet, "/", hdr))
	if req.ClientIP != "203.0.113.7" {
		t.Fatalf("expected first forwarded-for value, got %q", req.ClientIP)
	}
	req = a.Adapt(transportReq(http.MethodGet, "/", nil))
	if req.ClientIP != "10.0.0.9:51234" {
		t.Fatalf("expected remote addr, got %q", req.ClientIP)
	}
	if req.Header.Get("X-Client-Ip") != "" {
		t.Fatalf("client IP must not surface as a header")
	}
}

func TestCollapseHeader(t *testing.T) {
	hdr := http.Header{}
	hdr.Add("Accept", "text/html")
	hdr.Add("Accept", "application/json")
	hdr.Add("Cookie", "a=1")
	hdr.Add("Cookie", "b=2")
	req := NewAdapter(Options{}).Adapt(transportReq(http.MethodGet, "/", hdr))
	if got := req.Header.Get("Accept"); got != "text/html, application/json" {
		t.Fatalf("accept: %q", got)
	}
	if got := req.Header.Get("Cookie"); got != "a=1; b=2" {
		t.Fatalf("cookie: %q", got)
	}
}

func TestCancellationFiresOnClose(t *testing.T) {
	a := NewAdapter(Options{})
	conn := &fakeConn{remote: "1.2.3.4:1", ch: make(chan struct{})}
	tr := transportReq(http.MethodGet, "/", nil)
	tr.Conn = conn
	req := a.Adapt(tr)
	select {
	case <-req.Ctx.Done():
		t.Fatalf("canceled before close")
	default:
	}
	close(conn.ch)
	<-req.Ctx.Done()
}

func TestAlreadyClosedConnFiresImmediately(t *testing.T) {
	a := NewAdapter(Options{})
	tr := transportReq(http.MethodGet, "/", nil)
	tr.Conn = &fakeConn{closed: true}
	req := a.Adapt(tr)
	select {
	case <-req.Ctx.Done():
	default:
		t.Fatalf("expected immediate cancellation for closed connection")
	}
}

func TestReAdaptReplacesCleanup(t *testing.T) {
	a := NewAdapter(Options{})
	conn := &fakeConn{ch: make(chan struct{})}
	tr := transportReq(http.MethodGet, "/", nil)
	tr.Conn = conn

	first := a.Adapt(tr)
	second := a.Adapt(tr)
	if tr.Key == 0 || first.Key != second.Key {
		t.Fatalf("re-adaptation must reuse the transport key")
	}

	close(conn.ch)
	<-second.Ctx.Done()
	// the first adaptation was unsubscribed by the replacement, so its
	// signal never fires
	select {
	case <-first.Ctx.Done():
		t.Fatalf("replaced registration still fired")
	default:
	}

	// release is idempotent
	a.Release(tr.Key)
	a.Release(tr.Key)
}
