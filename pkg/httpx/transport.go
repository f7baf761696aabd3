package httpx

import (
	"io"
	"net/http"
	"sync/atomic"
)

// Conn is the handle a transport binding exposes for the underlying
// connection of a request.
type Conn interface {
	// RemoteAddr returns the peer address of the connection.
	RemoteAddr() string
	// Encrypted reports whether the connection is TLS.
	Encrypted() bool
	// CloseNotify returns a channel that is closed when the connection is
	// torn down. A nil channel means the transport cannot observe teardown.
	CloseNotify() <-chan struct{}
	// Closed reports whether the connection has already ended.
	Closed() bool
}

// BodyOverride replaces the transport body stream during adaptation.
// Precedence: Bytes, then Value (JSON-marshaled), then Stream.
type BodyOverride struct {
	Bytes  []byte
	Value  any
	Stream io.Reader
}

// TransportRequest is the raw, proxy-influenced request a binding hands to
// the Adapter. Header values may repeat; Host is the connection-provided
// authority (Host header or :authority pseudo-header).
type TransportRequest struct {
	Method     string
	RequestURI string // raw path plus query
	Header     http.Header
	Host       string
	Body       io.Reader
	Override   *BodyOverride
	Conn       Conn

	// Key identifies the underlying transport object for cancellation
	// bookkeeping. Bindings leave it zero; Adapt assigns it on first use so
	// re-adapting the same TransportRequest replaces, rather than
	// duplicates, its cleanup registration.
	Key uint64
}

// ResponseSink is the transport-level response surface a binding implements.
type ResponseSink interface {
	// WriteHeader sends status, status text (ignored where the transport
	// generation does not carry one) and headers. Called exactly once.
	WriteHeader(status int, statusText string, header http.Header)
	Write(p []byte) (int, error)
	// CloseNotify returns a channel that is closed when the client goes
	// away mid-response. May return nil.
	CloseNotify() <-chan struct{}
	// End completes the response normally.
	End()
	// Destroy terminates the connection, forwarding the causing error to
	// the transport if one is available.
	Destroy(err error)
}

// Envelope is the standard response representation written back onto a
// transport sink. A nil Body means the response has no body.
type Envelope struct {
	Status     int
	StatusText string
	Header     http.Header
	Body       io.Reader
}

// HandlerFunc is the handler signature shared by the transport bindings.
type HandlerFunc func(t *TransportRequest, sink ResponseSink)

var keySeq uint64

// NextKey returns a process-unique transport correlation key.
func NextKey() uint64 { return atomic.AddUint64(&keySeq, 1) }
