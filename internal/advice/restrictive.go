package advice

import (
	"context"
	"slices"

	"github.com/seitarof/classgate/internal/loader"
)

// RestrictiveLoaderMarker is the marker for RestrictiveLoader.
const RestrictiveLoaderMarker Marker = "restrictive-loader"

// RestrictiveLoader runs each invocation with a fresh evicting loader in
// its context, so types admitted in one invocation never leak static state
// into another. Retrieve it with loader.FromContext.
type RestrictiveLoader struct {
	opts []loader.Option
}

// NewRestrictiveLoader returns an interceptor building loaders with opts.
func NewRestrictiveLoader(opts ...loader.Option) *RestrictiveLoader {
	return &RestrictiveLoader{opts: opts}
}

// RestrictiveLoaderFactory is a Factory for NewRestrictiveLoader.
func RestrictiveLoaderFactory(opts ...loader.Option) Factory {
	return func() (Interceptor, error) {
		return NewRestrictiveLoader(opts...), nil
	}
}

type loaderOptionsKey struct{}

// WithLoaderOptions returns ctx carrying extra options for loaders built by
// RestrictiveLoader under it. They apply after the interceptor's own.
func WithLoaderOptions(ctx context.Context, opts ...loader.Option) context.Context {
	prev, _ := ctx.Value(loaderOptionsKey{}).([]loader.Option)
	return context.WithValue(ctx, loaderOptionsKey{}, append(slices.Clone(prev), opts...))
}

func (r *RestrictiveLoader) Invoke(ctx context.Context, next Invocation) error {
	opts := slices.Clone(r.opts)
	if extra, ok := ctx.Value(loaderOptionsKey{}).([]loader.Option); ok {
		opts = append(opts, extra...)
	}
	return next(loader.WithLoader(ctx, loader.New(opts...)))
}
