package httpx

import (
	"context"
	"sync"
)

// newAbortBridge ties connection teardown to a cancellation signal. It
// returns a context that is canceled at most once when conn closes, plus a
// cleanup that unsubscribes from the close notification. The cleanup is
// idempotent and safe to call concurrently with the close event itself.
// If the connection is already closed the context comes back canceled.
func newAbortBridge(conn Conn) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	if conn == nil {
		return ctx, func() {}
	}
	if conn.Closed() {
		cancel()
		return ctx, func() {}
	}
	ch := conn.CloseNotify()
	if ch == nil {
		return ctx, func() {}
	}

	stop := make(chan struct{})
	var fireOnce, stopOnce sync.Once
	go func() {
		select {
		case <-ch:
			// An unsubscribe that happened before this goroutine ran must
			// still win, so re-check stop before firing.
			select {
			case <-stop:
			default:
				fireOnce.Do(cancel)
			}
		case <-stop:
		}
	}()
	cleanup := func() {
		stopOnce.Do(func() { close(stop) })
	}
	return ctx, cleanup
}
