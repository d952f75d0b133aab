//go:build !tinygo

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"

	"vusen/app"
	"vusen/debugsrv"
	"vusen/hal"
	"vusen/internal/buildinfo"
	"vusen/internal/config"
	"vusen/internal/tracing"
)

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	level, _ := cfg.SlogLevel()

	var tracer trace.Tracer
	if cfg.Trace {
		tp, err := tracing.New(os.Stderr, buildinfo.Short())
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
		tracer = tp.Tracer()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		a      *app.App
		logger *slog.Logger
		srv    *debugsrv.Server
	)
	newApp := func(h hal.HAL) func() error {
		logger = slog.New(slog.NewTextHandler(hal.LogWriter(h.Logger()), &slog.HandlerOptions{Level: level}))
		logger.Info("starting", "build", buildinfo.Long())

		opts := []app.Option{app.WithLogger(logger), app.WithRegisterer(reg)}
		if tracer != nil {
			opts = append(opts, app.WithTracer(tracer))
		}
		var err error
		a, err = app.New(h, cfg.AppConfig(buildinfo.Short()), opts...)
		if err != nil {
			return func() error { return err }
		}

		if cfg.DebugAddr != "" {
			srv, err = debugsrv.Start(cfg.DebugAddr, debugsrv.Handler(a.Status, reg, logger), logger)
			if err != nil {
				return func() error { return fmt.Errorf("debug server: %w", err) }
			}
		}
		return a.Step
	}

	var runErr error
	if cfg.Headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		runErr = hal.RunHeadless(ctx, hal.HeadlessConfig{
			Width:  app.ScreenWidth,
			Height: app.ScreenHeight,
			Hz:     cfg.Hz,
			Ticks:  cfg.Ticks,
		}, newApp)
	} else {
		runErr = hal.RunWindow(hal.WindowConfig{
			Title:  buildinfo.Title(),
			Width:  app.ScreenWidth,
			Height: app.ScreenHeight,
			Scale:  cfg.WindowScale,
			TPS:    cfg.Hz,
			Highlight: func() (image.Rectangle, bool) {
				if a == nil {
					return image.Rectangle{}, false
				}
				return a.Highlight()
			},
		}, newApp)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil && logger != nil {
			logger.Warn("debug server shutdown", "error", err)
		}
	}
	if a != nil {
		if err := a.Close(ctx); err != nil && logger != nil {
			logger.Warn("worker pool shutdown", "error", err)
		}
		if err := a.Err(); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}
