package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "SigCouncil/internal/middleware"
	"SigCouncil/internal/service/pricefeed"
	"SigCouncil/internal/services/optimizer"
	"SigCouncil/internal/services/tracker"
	"SigCouncil/internal/usecase"
	pkgch "SigCouncil/pkg/clickhouse"
	"SigCouncil/pkg/config"
	xhttp "SigCouncil/pkg/http"
	pkgkafka "SigCouncil/pkg/kafka"
	applogger "SigCouncil/pkg/logger"
)

// App runs the full aggregation loop: periodic scans, live outcome
// detection off the price feed, the optimizer schedule and the read-only
// HTTP surface.
type App struct {
	cfg *config.Config
	log *applogger.Logger

	scan      *usecase.ScanUseCase
	outcomes  *usecase.OutcomeUseCase
	optimizer *optimizer.Optimizer
	tracker   *tracker.Tracker

	pipeline *mid.TickPipeline
	feed     *pricefeed.Client

	consumer *pkgkafka.Consumer
	kh       pkgkafka.MessageHandler

	httpHandler xhttp.Handler
	httpServer  *xhttp.Server

	chClient *pkgch.Client
	closers  []func() error
}

// Deps carries everything the App needs. Optional fields may be nil; the
// corresponding loop is then not started.
type Deps struct {
	Config    *config.Config
	Logger    *applogger.Logger
	Scan      *usecase.ScanUseCase
	Outcomes  *usecase.OutcomeUseCase
	Optimizer *optimizer.Optimizer
	Tracker   *tracker.Tracker
	Pipeline  *mid.TickPipeline
	Feed      *pricefeed.Client
	Consumer  *pkgkafka.Consumer
	Handler   pkgkafka.MessageHandler
	HTTP      xhttp.Handler
	CH        *pkgch.Client
	Closers   []func() error
}

// New creates a new App instance with all dependencies.
func New(d Deps) *App {
	return &App{
		cfg:         d.Config,
		log:         d.Logger,
		scan:        d.Scan,
		outcomes:    d.Outcomes,
		optimizer:   d.Optimizer,
		tracker:     d.Tracker,
		pipeline:    d.Pipeline,
		feed:        d.Feed,
		consumer:    d.Consumer,
		kh:          d.Handler,
		httpHandler: d.HTTP,
		chClient:    d.CH,
		closers:     d.Closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log

	// Recover the last committed weight snapshot so versions keep climbing
	// across restarts.
	if err := a.optimizer.Restore(ctx); err != nil {
		l.Warn("weight snapshot restore failed", applogger.Error(err))
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.feed != nil && a.pipeline != nil {
		a.pipeline.Start(ctx)
		go a.runFeed(ctx)
	}

	go a.runScans(ctx)
	go a.runOptimizer(ctx)
	go a.runExpiry(ctx)

	l.Info("started",
		applogger.Strings("assets", a.cfg.Scan.Assets),
		applogger.Duration("scan_interval", a.cfg.Scan.Interval),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// runFeed streams live prices into the outcome pipeline, reconnecting on
// stream failure.
func (a *App) runFeed(ctx context.Context) {
	l := a.log
	if err := a.feed.Connect(ctx); err != nil {
		l.Error("price feed connect error", applogger.Error(err))
		return
	}
	if err := a.feed.Subscribe(ctx); err != nil {
		l.Error("price feed subscribe error", applogger.Error(err))
		return
	}

	for {
		ticks, errs := a.feed.Read(ctx)
	inner:
		for {
			select {
			case <-ctx.Done():
				return
			case tick, ok := <-ticks:
				if !ok {
					break inner
				}
				if err := a.pipeline.Process(ctx, tick); err != nil {
					l.Debug("tick dropped", applogger.Error(err))
				}
			case err, ok := <-errs:
				if !ok {
					break inner
				}
				l.Warn("price feed stream error", applogger.Error(err))
				break inner
			}
		}

		if ctx.Err() != nil {
			return
		}
		if err := a.feed.Reconnect(ctx); err != nil {
			l.Error("price feed reconnect failed", applogger.Error(err))
			return
		}
		if err := a.feed.Subscribe(ctx); err != nil {
			l.Error("price feed resubscribe failed", applogger.Error(err))
			return
		}
	}
}

func (a *App) runScans(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Scan.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.scan.ScanAll(ctx, a.cfg.Scan.Assets); err != nil {
				a.log.Error("scan cycle error", applogger.Error(err))
			}
		}
	}
}

func (a *App) runOptimizer(ctx context.Context) {
	interval := a.cfg.Optimizer.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := a.optimizer.Optimize(ctx, a.tracker.RetiredBots())
			if err != nil {
				a.log.Error("optimize error", applogger.Error(err))
				continue
			}
			a.log.Info("weight snapshot committed",
				applogger.Uint64("version", snap.Version),
				applogger.Int("bots", len(snap.Weights)),
			)
		}
	}
}

func (a *App) runExpiry(ctx context.Context) {
	interval := a.cfg.Outcomes.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.outcomes.ExpireStale(ctx, time.Now()); n > 0 {
				a.log.Info("expired stale predictions", applogger.Int("count", n))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	l := a.log

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
	}
	if a.feed != nil {
		if err := a.feed.Close(); err != nil {
			l.Warn("price feed close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			l.Warn("close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
