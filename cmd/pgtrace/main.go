package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/flowscope/pgtrace/internal/capture"
	"github.com/flowscope/pgtrace/internal/config"
	"github.com/flowscope/pgtrace/internal/pipeline"
	"github.com/flowscope/pgtrace/internal/replay"
)

// version is set via -ldflags at build time.
var version = "dev"

func main() {
	cfgPath := flag.String("config", "", "path to config yaml")
	input := flag.String("input", "", "segment capture log to replay (overrides config; - for stdin)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pgtrace %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *input != "" {
		cfg.Replay.Input = *input
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	logger.Info("pgtrace starting", "version", version, "input", cfg.Replay.Input)

	st := pipeline.NewSelfTelemetry(cfg.SelfTelemetry, logger)
	p, err := pipeline.New(cfg.Pipeline(), st.Metrics(), logger)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	replayCtx, replayDone := context.WithCancel(ctx)

	g.Go(func() error {
		return st.Start(replayCtx)
	})

	g.Go(func() error {
		defer replayDone()
		return runReplay(ctx, cfg.Replay.Input, p, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("pgtrace: %v", err)
	}
}

func runReplay(ctx context.Context, input string, p *pipeline.Pipeline, logger *slog.Logger) error {
	in := os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	enc := json.NewEncoder(os.Stdout)
	var segments, spans int

	err := replay.Read(in, func(seg capture.Segment) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		segments++
		span, ok := p.Handle(seg)
		if !ok {
			return nil
		}
		spans++
		return enc.Encode(span)
	})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	logger.Info("replay finished", "segments", segments, "spans", spans)
	return nil
}
