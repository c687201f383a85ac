package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/S1riyS/os-course-lab-4/snfs/internal/config"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/handler"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/metrics"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/middleware"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/namespace"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/repository"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/service"
	"github.com/S1riyS/os-course-lab-4/snfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/snfs/pkg/logging/slogext"
	"github.com/S1riyS/os-course-lab-4/snfs/pkg/logging/slogpretty"
)

const configPath = "configs/config.yaml"

func main() {
	cfg := config.MustLoad(config.ResolvePath(configPath))

	logger := setupLogger(cfg.App.Env)

	// Root context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.MakeContextWithLogger(ctx, logger)

	// Dependencies
	var (
		reg *prometheus.Registry
		m   *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
	}

	fsRepo := repository.NewFilesystemRepository(namespace.Options{
		MaxInodes:   cfg.Namespace.MaxInodes,
		MaxFileSize: cfg.Namespace.MaxFileSize,
	})
	fsService := service.NewFileSystemService(fsRepo, m)
	h := handler.NewHandler(fsService)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	if reg != nil {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      middleware.RequestIDMiddleware(middleware.LoggingMiddleware(mux)),
		ReadTimeout:  cfg.App.DefaultTimeout,
		WriteTimeout: cfg.App.DefaultTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server started", slog.String("addr", srv.Addr), slog.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		fsRepo.Close(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", slogext.Err(err))
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return setupPrettySlog()
	}
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
