package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"SentiFlow/internal/broadcast"
	"SentiFlow/internal/usecase"
	pkgch "SentiFlow/pkg/clickhouse"
	"SentiFlow/pkg/config"
	xhttp "SentiFlow/pkg/http"
	pkgkafka "SentiFlow/pkg/kafka"
	applogger "SentiFlow/pkg/logger"
)

// App encapsulates the application lifecycle: pipeline stages, the
// subscription broadcaster, the HTTP server, and the infrastructure clients
// behind them.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	pipeline    *usecase.Pipeline
	broadcaster *broadcast.Broadcaster
	consumer    *pkgkafka.Consumer
	newsHandler pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates an App instance with all dependencies. consumer, newsHandler
// and chClient may be nil when their subsystems are disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	pipeline *usecase.Pipeline,
	broadcaster *broadcast.Broadcaster,
	consumer *pkgkafka.Consumer,
	newsHandler pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		pipeline:    pipeline,
		broadcaster: broadcaster,
		consumer:    consumer,
		newsHandler: newsHandler,
		chClient:    chClient,
	}
}

// SetHTTPHandler injects the HTTP route handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts every stage and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	a.pipeline.Start(ctx)
	a.log.Info("pipeline started",
		applogger.Duration("poll_interval", a.cfg.Ingest.PollInterval),
		applogger.String("scoring_mode", a.cfg.Scoring.Mode),
	)

	if a.consumer != nil && a.newsHandler != nil {
		a.consumer.RegisterHandler(a.newsHandler)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka news consumer started", applogger.String("topic", a.newsHandler.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

// shutdown drains the stages in reverse order of data flow: stop accepting
// work, flush in-flight batches, close subscribers, then the infrastructure.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.broadcaster.Shutdown()
	a.log.Info("broadcaster closed")

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
