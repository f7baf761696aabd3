package httpx

import (
	"net/http"
)

// NetHTTPAdapter adapts a HandlerFunc into a net/http handler.
func NetHTTPAdapter(h HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(NetHTTPTransport(r), NetHTTPSink(w, r))
	})
}

// NetHTTPTransport builds a TransportRequest over a net/http request.
func NetHTTPTransport(r *http.Request) *TransportRequest {
	uri := r.RequestURI
	if uri == "" {
		uri = r.URL.RequestURI()
	}
	return &TransportRequest{
		Method:     r.Method,
		RequestURI: uri,
		Header:     r.Header,
		Host:       r.Host,
		Body:       r.Body,
		Conn:       &netConn{r: r},
	}
}

// NetHTTPSink builds a ResponseSink over a net/http response writer.
func NetHTTPSink(w http.ResponseWriter, r *http.Request) ResponseSink {
	return &netSink{w: w, r: r}
}

type netConn struct{ r *http.Request }

func (c *netConn) RemoteAddr() string { return c.r.RemoteAddr }

func (c *netConn) Encrypted() bool { return c.r.TLS != nil }

func (c *netConn) CloseNotify() <-chan struct{} { return c.r.Context().Done() }

func (c *netConn) Closed() bool { return c.r.Context().Err() != nil }

type netSink struct {
	w           http.ResponseWriter
	r           *http.Request
	wroteHeader bool
}

// WriteHeader copies headers onto the transport and sends the status line.
// net/http composes the status text itself, so a custom text is omitted.
func (s *netSink) WriteHeader(status int, _ string, header http.Header) {
	if s.wroteHeader {
		return
	}
	s.wroteHeader = true
	dst := s.w.Header()
	for k, vals := range header {
		for _, v := range vals {
			dst.Add(k, v)
		}
	}
	s.w.WriteHeader(status)
}

func (s *netSink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if f, ok := s.w.(http.Flusher); ok && err == nil {
		f.Flush()
	}
	return n, err
}

func (s *netSink) CloseNotify() <-chan struct{} { return s.r.Context().Done() }

func (s *netSink) End() {}

// Destroy terminates the client connection. Hijacking is preferred; where
// the transport generation cannot hijack (HTTP/2), http.ErrAbortHandler
// makes the server reset the stream.
func (s *netSink) Destroy(err error) {
	if hj, ok := s.w.(http.Hijacker); ok {
		if conn, _, herr := hj.Hijack(); herr == nil {
			_ = conn.Close()
			return
		}
	}
	panic(http.ErrAbortHandler)
}
