// internal/app/system/workers/fincenwarmer.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TokenSource is the part of fincen.TokenSource the warmer drives.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenWarmer is a background worker that keeps the FinCEN access token
// cached so request handlers rarely wait on the token endpoint.
type TokenWarmer struct {
	tokens   TokenSource
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewTokenWarmer creates a warmer that checks the cache every interval.
// Each check refreshes only when the cached token is missing or about to
// expire, so interval should be shorter than the refresh skew.
func NewTokenWarmer(tokens TokenSource, logger *zap.Logger, interval time.Duration) *TokenWarmer {
	return &TokenWarmer{
		tokens:   tokens,
		log:      logger,
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start fetches a token immediately and then begins the refresh loop.
func (w *TokenWarmer) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("fincen token warmer started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. It is safe to
// call more than once.
func (w *TokenWarmer) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("fincen token warmer stopped")
	})
}

func (w *TokenWarmer) run() {
	defer w.wg.Done()

	w.warm()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.warm()
		}
	}
}

func (w *TokenWarmer) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	// The token source logs and counts failures itself.
	if _, err := w.tokens.Token(ctx); err != nil {
		w.log.Debug("fincen token warm-up failed", zap.Error(err))
	}
}
