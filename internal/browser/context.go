// File: internal/browser/context.go
package browser

import (
	"context"
	"time"
)

// CombineContext derives a context that is canceled when either parent is.
// chromedp contexts carry the CDP target, so operations must derive from the
// session context while still honoring the caller's cancellation.
func CombineContext(parentCtx, secondaryCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(parentCtx)

	go func() {
		select {
		case <-secondaryCtx.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}

// valueOnlyContext wraps a parent context to create a "detached" context: it
// inherits values (the CDP target) but ignores the parent's deadline and
// cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context usable for cleanup operations that must outlive
// the caller's context.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
