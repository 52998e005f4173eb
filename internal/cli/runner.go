package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seitarof/classgate/internal/advice"
	"github.com/seitarof/classgate/internal/classfile"
	"github.com/seitarof/classgate/internal/loader"
	"github.com/seitarof/classgate/internal/matcher"
	"github.com/seitarof/classgate/internal/predicate"
	"github.com/seitarof/classgate/internal/report"
	"github.com/seitarof/classgate/internal/source"
)

// Runner orchestrates source/loader/report layers.
type Runner interface {
	Run(ctx context.Context, cfg *Config) (*report.Report, error)
}

type runnerImpl struct {
	advice   *advice.Context
	reporter report.Reporter
	logger   *zap.Logger
}

// NewRunner creates a default runner implementation. Each run resolves its
// types with a fresh loader supplied by the restrictive-loader advice of ac.
func NewRunner(ac *advice.Context, rep report.Reporter, logger *zap.Logger) Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &runnerImpl{advice: ac, reporter: rep, logger: logger}
}

// Run executes a single scan and writes its report.
func (r *runnerImpl) Run(ctx context.Context, cfg *Config) (*report.Report, error) {
	err := r.advice.Register(advice.RestrictiveLoaderMarker, advice.RestrictiveLoaderFactory(loader.WithLogger(r.logger)))
	if err != nil && !errors.Is(err, advice.ErrDuplicateMarker) {
		return nil, fmt.Errorf("register advice: %w", err)
	}

	chain, err := source.OpenAll(cfg.ClassPath)
	if err != nil {
		return nil, fmt.Errorf("open classpath: %w", err)
	}
	defer func() {
		if err := chain.Close(); err != nil {
			r.logger.Warn("close classpath", zap.Error(err))
		}
	}()

	excluded := matcher.NewDefault(cfg.Exclude...)
	names := cfg.Names
	if len(names) == 0 {
		all, err := chain.Names(ctx)
		if err != nil {
			return nil, fmt.Errorf("list classpath: %w", err)
		}
		names = matcher.Reject(excluded, all)
	}
	r.logger.Info("scanning", zap.Int("types", len(names)), zap.Strings("classpath", cfg.ClassPath))

	ctx = advice.WithLoaderOptions(ctx,
		loader.WithSource(chain),
		loader.WithExcluded(excluded),
		loader.WithPredicate(newPredicate(ctx, cfg, chain)),
	)
	entries := make([]report.Entry, len(names))
	err = r.advice.Run(ctx, []advice.Marker{advice.RestrictiveLoaderMarker}, func(ctx context.Context) error {
		l, ok := loader.FromContext(ctx)
		if !ok {
			return errors.New("no loader in context")
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Concurrency)
		for i, name := range names {
			i, name := i, name
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				_, err := l.Resolve(gctx, name)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				entries[i] = report.EntryFor(name, err)
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	rep := report.NewReport(entries)
	r.logger.Info("scan finished",
		zap.Int("admitted", rep.Summary.Admitted),
		zap.Int("rejected", rep.Summary.Rejected),
		zap.Int("malformed", rep.Summary.Malformed),
		zap.Int("notFound", rep.Summary.NotFound))
	if err := r.reporter.Report(cfg, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

func newPredicate(ctx context.Context, cfg *Config, src source.Source) predicate.Predicate {
	rules := predicate.DefaultRules()
	if cfg.StrictNested {
		rules = append(rules, predicate.NewNestedTypeRule(func(name string) (*classfile.TypeDescriptor, error) {
			b, err := src.BytesFor(ctx, name)
			if errors.Is(err, source.ErrNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return classfile.Parse(b)
		}))
	}
	return predicate.New(rules...)
}
