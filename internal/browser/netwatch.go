// File: internal/browser/netwatch.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// netWatcher tracks in-flight network requests for one session so that
// callers can wait for the page to go quiet. The portal is a client-rendered
// Angular app; DOM readiness alone says nothing about whether the week's
// data has arrived.
type netWatcher struct {
	sessionCtx context.Context
	logger     *zap.Logger

	listenerCtx    context.Context
	cancelListener context.CancelFunc

	mu       sync.RWMutex
	inflight map[network.RequestID]struct{}

	isStarted bool
}

func newNetWatcher(sessionCtx context.Context, logger *zap.Logger) *netWatcher {
	return &netWatcher{
		sessionCtx: sessionCtx,
		logger:     logger.Named("netwatch"),
		inflight:   make(map[network.RequestID]struct{}),
	}
}

// Start enables the Network domain and begins tracking request lifecycles.
func (w *netWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isStarted {
		return nil
	}

	// Derived from the session context: when the session dies, so does the
	// listener.
	w.listenerCtx, w.cancelListener = context.WithCancel(w.sessionCtx)
	go w.listen()

	if err := chromedp.Run(w.sessionCtx, network.Enable()); err != nil {
		w.cancelListener()
		return err
	}

	w.isStarted = true
	w.logger.Debug("Network watcher started.")
	return nil
}

func (w *netWatcher) listen() {
	chromedp.ListenTarget(w.listenerCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			w.mu.Lock()
			w.inflight[e.RequestID] = struct{}{}
			w.mu.Unlock()
		case *network.EventLoadingFinished:
			w.remove(e.RequestID)
		case *network.EventLoadingFailed:
			w.remove(e.RequestID)
		}
	})
}

func (w *netWatcher) remove(id network.RequestID) {
	w.mu.Lock()
	delete(w.inflight, id)
	w.mu.Unlock()
}

// Stop ends event tracking.
func (w *netWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelListener != nil {
		w.cancelListener()
	}
	w.isStarted = false
}

// WaitIdle polls until there have been no in-flight requests for the quiet
// period, or the context is done.
func (w *netWatcher) WaitIdle(ctx context.Context, quietPeriod time.Duration) error {
	ticker := time.NewTicker(quietPeriod / 2)
	defer ticker.Stop()

	lastActivity := time.Now()
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("WaitIdle aborted.", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			w.mu.RLock()
			inflightCount := len(w.inflight)
			w.mu.RUnlock()

			if inflightCount > 0 {
				lastActivity = time.Now()
			} else if time.Since(lastActivity) >= quietPeriod {
				return nil
			}
		}
	}
}
