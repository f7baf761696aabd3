package render

import (
	"fmt"
	"net/http"

	"rendergate/pkg/httpx"
)

// Handler is the user middleware capability: it may produce a response of
// its own, or call next to defer to the rest of the dispatch.
type Handler func(ctx *Context, next Next) (*httpx.Envelope, error)

// Next is the continuation a middleware invokes to defer. It returns an
// empty sentinel envelope; the real response is produced by the dispatch
// path that continues after the middleware.
type Next func() (*httpx.Envelope, error)

// Outcome says how a middleware run ended.
type Outcome int

const (
	// OutcomeShortCircuit: the middleware produced the final response
	// without deferring.
	OutcomeShortCircuit Outcome = iota
	// OutcomeContinue: the middleware invoked its continuation; dispatch
	// proceeds, carrying the collected side effects.
	OutcomeContinue
)

// Result is the explicit two-variant outcome of a middleware run. Response
// is set only for OutcomeShortCircuit; Cookies carries the jar's serialized
// Set-Cookie values for both variants.
type Result struct {
	Outcome  Outcome
	Response *httpx.Envelope
	Cookies  []string
}

// Run invokes the middleware against ctx and folds the
// continuation-invoked-or-not protocol into a Result. Invoking the
// continuation wins over any returned response. Errors are returned to the
// dispatch boundary, which treats them as fail-open.
func Run(ctx *Context, h Handler) (Result, error) {
	deferred := false
	next := func() (*httpx.Envelope, error) {
		deferred = true
		return &httpx.Envelope{Status: http.StatusOK, Header: make(http.Header)}, nil
	}

	res, err := h(ctx, next)
	if err != nil {
		return Result{}, fmt.Errorf("middleware: %w", err)
	}
	cookies := ctx.Cookies.Headers()
	if deferred {
		return Result{Outcome: OutcomeContinue, Cookies: cookies}, nil
	}
	if res == nil {
		// No response and no continuation: treat as a deferral so the
		// request still gets served.
		return Result{Outcome: OutcomeContinue, Cookies: cookies}, nil
	}
	return Result{Outcome: OutcomeShortCircuit, Response: res, Cookies: cookies}, nil
}
