package advice

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Lifecycle closes a Context when the host asks to shut down: on one of
// the watched signals, when the parent context ends, or on Stop.
type Lifecycle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start watches signals (SIGINT and SIGTERM when none are given) and closes
// c once any of them arrives. The returned context ends at the same time.
func Start(parent context.Context, c *Context, signals ...os.Signal) (*Lifecycle, context.Context) {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, cancel := signal.NotifyContext(parent, signals...)
	l := &Lifecycle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(l.done)
		<-ctx.Done()
		l.err = c.Close()
	}()
	return l, ctx
}

// Done is closed after the Context has been closed.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}

// Stop triggers shutdown, waits for it and returns the Close error.
// Safe to call more than once.
func (l *Lifecycle) Stop() error {
	l.cancel()
	<-l.done
	return l.err
}
