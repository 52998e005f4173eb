// Package loader implements the evicting loader: a delegating resolver that
// defines a type only after the static-initialization rules admit it.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/seitarof/classgate/internal/classfile"
	"github.com/seitarof/classgate/internal/matcher"
	"github.com/seitarof/classgate/internal/predicate"
	"github.com/seitarof/classgate/internal/source"
	"github.com/seitarof/classgate/internal/transform"
)

var loaderSeq atomic.Uint64

// Loader resolves types by delegating to its parent first and otherwise
// fetching, classifying and defining them itself. Decisions are cached for
// the lifetime of the Loader. Safe for concurrent use.
type Loader struct {
	id          string
	parent      Resolver
	source      source.Source
	transformer transform.Transformer
	excluded    matcher.NameMatcher
	logger      *zap.Logger

	group singleflight.Group

	mu        sync.RWMutex
	decisions map[string]*decision
}

type decision struct {
	verdict predicate.Verdict
	typ     *LoadedType
	err     error
}

// Option configures a Loader.
type Option func(*Loader)

// WithParent sets the delegation target tried before local definition.
func WithParent(p Resolver) Option {
	return func(l *Loader) { l.parent = p }
}

// WithSource sets the byte source.
func WithSource(s source.Source) Option {
	return func(l *Loader) { l.source = s }
}

// WithTransformer sets the transformer. Defaults to transform.New(nil).
func WithTransformer(t transform.Transformer) Option {
	return func(l *Loader) { l.transformer = t }
}

// WithPredicate is shorthand for WithTransformer(transform.New(p)).
func WithPredicate(p predicate.Predicate) Option {
	return func(l *Loader) { l.transformer = transform.New(p) }
}

// WithExcluded sets the names that are never defined locally.
// Defaults to matcher.NewDefault().
func WithExcluded(m matcher.NameMatcher) Option {
	return func(l *Loader) { l.excluded = m }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithID overrides the generated loader id.
func WithID(id string) Option {
	return func(l *Loader) { l.id = id }
}

// New returns a Loader with an empty source unless WithSource is given.
func New(opts ...Option) *Loader {
	l := &Loader{
		source:      source.Map{},
		transformer: transform.New(nil),
		excluded:    matcher.NewDefault(),
		logger:      zap.NewNop(),
		decisions:   map[string]*decision{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.id == "" {
		l.id = "loader-" + strconv.FormatUint(loaderSeq.Add(1), 10)
	}
	l.logger = l.logger.With(zap.String("loader", l.id))
	return l
}

// ID returns the loader id.
func (l *Loader) ID() string {
	return l.id
}

// Resolve returns the type called name. Types already defined here are
// returned directly; otherwise the parent is asked first and only a parent
// miss leads to fetch, classify and define. A rejected name fails with the
// same *ClassFormatViolation on every call.
//
// Concurrent calls for one name share a single resolution that is not bound
// to any caller's cancellation; a canceled caller returns ctx.Err() while
// the others keep waiting.
func (l *Loader) Resolve(ctx context.Context, name string) (*LoadedType, error) {
	if d, ok := l.cached(name); ok {
		return d.typ, d.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := l.group.DoChan(name, func() (any, error) {
		return l.resolveSlow(context.WithoutCancel(ctx), name)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*LoadedType), nil
	}
}

func (l *Loader) cached(name string) (*decision, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.decisions[name]
	return d, ok
}

func (l *Loader) resolveSlow(ctx context.Context, name string) (*LoadedType, error) {
	if d, ok := l.cached(name); ok {
		return d.typ, d.err
	}

	if l.parent != nil {
		t, err := l.parent.Resolve(ctx, name)
		if err == nil {
			return t, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	if l.excluded != nil && l.excluded.Match(name) {
		return nil, &TypeNotFoundError{Name: name}
	}

	b, err := l.source.BytesFor(ctx, name)
	if errors.Is(err, source.ErrNotFound) {
		return nil, &TypeNotFoundError{Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	res, err := l.transformer.Transform(name, b)
	if err != nil {
		l.logger.Warn("malformed class file", zap.String("type", name), zap.Error(err))
		return nil, err
	}
	if res.Descriptor.Name != name {
		err := &classfile.MalformedDescriptorError{Name: name, Detail: "wrong name: " + res.Descriptor.Name}
		l.logger.Warn("malformed class file", zap.String("type", name), zap.Error(err))
		return nil, err
	}

	if res.Vetoed() {
		err := &ClassFormatViolation{Name: name, Reason: res.Verdict.Reason, Member: res.Verdict.Member}
		if err := l.record(name, &decision{verdict: res.Verdict, err: err}); err != nil {
			return nil, err
		}
		l.logger.Info("type rejected",
			zap.String("type", name),
			zap.String("reason", string(res.Verdict.Reason)),
			zap.String("member", res.Verdict.Member))
		return nil, err
	}

	t := newLoadedType(res.Descriptor, res.Bytes, l.id)
	if err := l.record(name, &decision{verdict: res.Verdict, typ: t}); err != nil {
		return nil, err
	}
	l.logger.Debug("type defined", zap.String("type", name))
	return t, nil
}

func (l *Loader) record(name string, d *decision) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.decisions[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicateDefinition)
	}
	l.decisions[name] = d
	return nil
}

// Decision returns the cached verdict for a name this loader classified.
// Parent-delegated, malformed and missing names have no decision.
func (l *Loader) Decision(name string) (predicate.Verdict, bool) {
	d, ok := l.cached(name)
	if !ok {
		return predicate.Verdict{}, false
	}
	return d.verdict, true
}

// Defined returns the type if this loader defined it.
func (l *Loader) Defined(name string) (*LoadedType, bool) {
	d, ok := l.cached(name)
	if !ok || d.typ == nil {
		return nil, false
	}
	return d.typ, true
}

// NewInstance resolves name and creates an instance of it.
func (l *Loader) NewInstance(ctx context.Context, name string) (*Instance, error) {
	t, err := l.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if t.Descriptor.AccessFlags&(classfile.AccInterface|classfile.AccAbstract) != 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNotInstantiable)
	}
	return newInstance(t), nil
}
