package httpx

import (
	"bytes"
	"io"
	"net/http"

	"github.com/valyala/fasthttp"
)

// FastHTTPAdapter adapts a HandlerFunc into a fasthttp.RequestHandler.
// With StreamRequestBody enabled the transport body is the live stream;
// otherwise it is a reader over the already-received bytes.
func FastHTTPAdapter(h HandlerFunc) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		hdr := make(http.Header)
		ctx.Request.Header.VisitAll(func(k, v []byte) {
			hdr.Add(string(k), string(v))
		})
		var body io.Reader = bytes.NewReader(ctx.PostBody())
		if s := ctx.RequestBodyStream(); s != nil {
			body = s
		}
		t := &TransportRequest{
			Method:     string(ctx.Method()),
			RequestURI: string(ctx.RequestURI()),
			Header:     hdr,
			Host:       string(ctx.Host()),
			Body:       body,
			Conn:       &fastConn{ctx: ctx},
		}
		h(t, &fastSink{ctx: ctx})
	}
}

type fastConn struct{ ctx *fasthttp.RequestCtx }

func (c *fastConn) RemoteAddr() string { return c.ctx.RemoteAddr().String() }

func (c *fastConn) Encrypted() bool { return c.ctx.IsTLS() }

func (c *fastConn) CloseNotify() <-chan struct{} { return c.ctx.Done() }

func (c *fastConn) Closed() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

type fastSink struct {
	ctx         *fasthttp.RequestCtx
	wroteHeader bool
}

func (s *fastSink) WriteHeader(status int, statusText string, header http.Header) {
	if s.wroteHeader {
		return
	}
	s.wroteHeader = true
	for k, vals := range header {
		for _, v := range vals {
			s.ctx.Response.Header.Add(k, v)
		}
	}
	s.ctx.SetStatusCode(status)
	if statusText != "" {
		s.ctx.Response.Header.SetStatusMessage([]byte(statusText))
	}
}

func (s *fastSink) Write(p []byte) (int, error) { return s.ctx.Write(p) }

func (s *fastSink) CloseNotify() <-chan struct{} { return s.ctx.Done() }

func (s *fastSink) End() {}

func (s *fastSink) Destroy(err error) {
	if err != nil {
		s.ctx.SetConnectionClose()
	}
	if conn := s.ctx.Conn(); conn != nil {
		_ = conn.Close()
	}
}
