package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "PairWatch/internal/middleware"
	"PairWatch/internal/usecase"
	"PairWatch/pkg/config"
	xhttp "PairWatch/pkg/http"
	pkgkafka "PairWatch/pkg/kafka"
	applogger "PairWatch/pkg/logger"
)

// App encapsulates the entire application lifecycle. Exactly one of
// collector (binance source) or consumer (kafka source) is non-nil.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	collector   *usecase.TickCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	pipe        *mid.TickPipeline
	proc        *usecase.TickProcessor
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	pipe *mid.TickPipeline,
	proc *usecase.TickProcessor,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		pipe:      pipe,
		proc:      proc,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(l, 500*time.Millisecond),
	)

	// Start the feed: WebSocket collector or Kafka consumer
	switch {
	case a.collector != nil:
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("collector started",
			applogger.Strings("symbols", a.cfg.Market.Symbols),
			applogger.String("url", a.cfg.Feed.WebSocketURL),
		)

	case a.consumer != nil && a.kh != nil:
		// consumer path bypasses the collector, so the pipeline is
		// started here
		if a.pipe != nil {
			a.pipe.Start(ctx)
		}
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Stop consumer and its pipeline
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
		if a.pipe != nil {
			a.pipe.Stop()
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Close processor resources (Kafka tee)
	if a.proc != nil {
		a.proc.Close()
	}

	l.Info("shutdown complete")
	return nil
}
