package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/seitarof/classgate/internal/advice"
	"github.com/seitarof/classgate/internal/cli"
	"github.com/seitarof/classgate/internal/logging"
	"github.com/seitarof/classgate/internal/report"
)

var version = "dev"

func main() {
	os.Exit(run())
}

// run returns 0 when every type is admitted, 1 when any is not, and 2 on
// usage or runtime errors.
func run() int {
	cfg, err := cli.ParseArgs(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if cfg.ShowVersion {
		fmt.Println(version)
		return 0
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	f, err := report.NewFormatter(cfg.Format)
	if err != nil {
		logger.Error("invalid format", zap.Error(err))
		return 2
	}

	ac := advice.New(advice.WithLogger(logger))
	lifecycle, ctx := advice.Start(context.Background(), ac)
	defer func() {
		if err := lifecycle.Stop(); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	runner := cli.NewRunner(ac, report.New(f, report.NewFileWriter(os.Stdout)), logger)
	rep, err := runner.Run(ctx, cfg)
	if err != nil {
		logger.Error("scan failed", zap.Error(err))
		return 2
	}
	if rep.Summary.Failed() {
		return 1
	}
	return 0
}
