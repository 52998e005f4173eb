package loader

import (
	"context"
)

// Resolver resolves a qualified type name. A miss is a *TypeNotFoundError.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*LoadedType, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, name string) (*LoadedType, error)

func (f ResolverFunc) Resolve(ctx context.Context, name string) (*LoadedType, error) {
	return f(ctx, name)
}

type chainResolver struct {
	resolvers []Resolver
}

// Chain tries resolvers in order. A not-found result falls through to the
// next resolver; any other error stops the chain. Install the evicting
// Loader last.
func Chain(resolvers ...Resolver) Resolver {
	return &chainResolver{resolvers: resolvers}
}

func (c *chainResolver) Resolve(ctx context.Context, name string) (*LoadedType, error) {
	for _, r := range c.resolvers {
		t, err := r.Resolve(ctx, name)
		if err == nil {
			return t, nil
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}
	return nil, &TypeNotFoundError{Name: name}
}

type loaderKey struct{}

// WithLoader returns ctx carrying l.
func WithLoader(ctx context.Context, l *Loader) context.Context {
	return context.WithValue(ctx, loaderKey{}, l)
}

// FromContext returns the loader stored by WithLoader.
func FromContext(ctx context.Context) (*Loader, bool) {
	l, ok := ctx.Value(loaderKey{}).(*Loader)
	return l, ok && l != nil
}
