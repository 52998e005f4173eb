// Package advice maps marker keys to lazily built interceptors and runs
// invocations inside them.
package advice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("advice: context closed")
	// ErrUnknownMarker is returned for markers without a registered factory.
	ErrUnknownMarker = errors.New("advice: unknown marker")
	// ErrDuplicateMarker is returned when a marker is registered twice.
	ErrDuplicateMarker = errors.New("advice: marker already registered")
)

// Marker identifies the advice wanted around an invocation.
type Marker string

// Invocation is the advised body.
type Invocation func(ctx context.Context) error

// Interceptor runs around an invocation and decides whether and how to call next.
// Interceptors are shared across invocations and must be safe for concurrent use.
// Those holding resources implement io.Closer.
type Interceptor interface {
	Invoke(ctx context.Context, next Invocation) error
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(ctx context.Context, next Invocation) error

func (f InterceptorFunc) Invoke(ctx context.Context, next Invocation) error {
	return f(ctx, next)
}

// Factory builds the interceptor for a marker. It is called at most once.
type Factory func() (Interceptor, error)

type entry struct {
	once sync.Once
	ic   Interceptor
	err  error
}

// Context caches one interceptor per marker until Close.
type Context struct {
	logger *zap.Logger

	mu        sync.Mutex
	factories map[Marker]Factory
	entries   map[Marker]*entry
	closed    atomic.Bool
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// New returns an empty Context.
func New(opts ...Option) *Context {
	c := &Context{
		logger:    zap.NewNop(),
		factories: map[Marker]Factory{},
		entries:   map[Marker]*entry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register binds marker to f.
func (c *Context) Register(marker Marker, f Factory) error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.factories[marker]; ok {
		return fmt.Errorf("%s: %w", marker, ErrDuplicateMarker)
	}
	c.factories[marker] = f
	return nil
}

// AdviceFor returns the interceptor for marker, building it on first use.
// A factory failure is cached like a success.
func (c *Context) AdviceFor(marker Marker) (Interceptor, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	f, ok := c.factories[marker]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", marker, ErrUnknownMarker)
	}
	e, ok := c.entries[marker]
	if !ok {
		e = &entry{}
		c.entries[marker] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.ic, e.err = f()
		if e.err == nil && e.ic == nil {
			e.err = fmt.Errorf("%s: factory returned nil interceptor", marker)
		}
	})
	if e.ic == nil && e.err == nil {
		// Close won the race for this entry.
		return nil, ErrClosed
	}
	return e.ic, e.err
}

// Run calls body wrapped in the interceptors of markers; the first marker
// is outermost.
func (c *Context) Run(ctx context.Context, markers []Marker, body Invocation) error {
	next := body
	for i := len(markers) - 1; i >= 0; i-- {
		ic, err := c.AdviceFor(markers[i])
		if err != nil {
			return err
		}
		inner := next
		next = func(ctx context.Context) error {
			return ic.Invoke(ctx, inner)
		}
	}
	return next(ctx)
}

// Close closes every built interceptor that implements io.Closer. Only the
// first call does work; failures are logged and returned joined.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	entries := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.Unlock()

	var errs []error
	for _, e := range entries {
		// Waits for an in-flight build, or prevents a later one.
		e.once.Do(func() {})
		closer, ok := e.ic.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			c.logger.Error("error closing advice", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
