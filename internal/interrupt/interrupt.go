// Package interrupt turns SIGINT into a cooperative stop request.
package interrupt

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
)

// Token is checked by long-running loops between units of work. Stopping it
// never cancels work already in flight.
type Token struct {
	stopped atomic.Bool
}

func (t *Token) Stop() {
	t.stopped.Store(true)
}

// Stopped reports whether a stop was requested. A nil token never stops.
func (t *Token) Stopped() bool {
	return t != nil && t.stopped.Load()
}

// Reset clears a previous stop request before a new run.
func (t *Token) Reset() {
	t.stopped.Store(false)
}

// Notify returns a token stopped by the first SIGINT or SIGTERM. A second
// signal calls forceExit, which defaults to exiting with status 2.
func Notify(logger *zap.Logger, forceExit func()) *Token {
	if logger == nil {
		logger = zap.NewNop()
	}
	if forceExit == nil {
		forceExit = func() { os.Exit(2) }
	}

	token := &Token{}
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		for range signals {
			if token.Stopped() {
				logger.Warn("forced exit")
				forceExit()
				return
			}
			token.Stop()
			logger.Warn("interrupted, finishing current unit of work; interrupt again to force exit")
		}
	}()

	return token
}
