package httpx

import (
	"io"
	"net/http"
	"sync"

	"rendergate/pkg/logger"
)

const copyChunkSize = 32 * 1024

// genericFailureBody is the best-effort payload written when a response body
// errors after headers have been sent.
var genericFailureBody = []byte("Internal server error")

// WriteEnvelope streams env onto sink. Status and headers go out
// immediately; the body, if any, is chunk-copied until completion. Early
// sink closure cancels the body reader and is reported, not returned.
// A body read error after headers is fatal: a generic failure payload is
// written and the sink destroyed, and the error comes back to the caller
// for the operator-visible channel.
//
// release, when non-nil, is the cancellation cleanup associated with the
// originating request; it runs exactly once on every exit path.
func WriteEnvelope(env *Envelope, sink ResponseSink, release func()) error {
	var relOnce sync.Once
	done := func() {
		if release != nil {
			relOnce.Do(release)
		}
	}
	defer done()

	status := env.Status
	if status == 0 {
		status = http.StatusOK
	}
	statusText := env.StatusText
	if statusText == "" {
		statusText = http.StatusText(status)
	}
	header := env.Header
	if header == nil {
		header = make(http.Header)
	}
	sink.WriteHeader(status, statusText, header)

	if env.Body == nil {
		sink.End()
		return nil
	}

	closeCh := sink.CloseNotify()
	buf := make([]byte, copyChunkSize)
	for {
		if closeCh != nil {
			select {
			case <-closeCh:
				cancelBody(env.Body)
				logger.Warn("response_sink_closed_early", "status", status)
				return nil
			default:
			}
		}
		n, err := env.Body.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				cancelBody(env.Body)
				logger.Warn("response_write_failed", "error", werr)
				sink.Destroy(werr)
				return werr
			}
		}
		if err == io.EOF {
			sink.End()
			return nil
		}
		if err != nil {
			_, _ = sink.Write(genericFailureBody)
			sink.Destroy(err)
			return err
		}
	}
}

// cancelBody closes the body reader when it supports it. Close errors are
// reported, never propagated.
func cancelBody(body io.Reader) {
	if c, ok := body.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Debug("body_cancel_failed", "error", err)
		}
	}
}
