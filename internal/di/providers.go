package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"SigCouncil/internal/domain/repository"
	domsvc "SigCouncil/internal/domain/service"
	"SigCouncil/internal/handler/api"
	mid "SigCouncil/internal/middleware"
	internalrepo "SigCouncil/internal/repository"
	"SigCouncil/internal/service/pricefeed"
	"SigCouncil/internal/service/ratelimit"
	"SigCouncil/internal/services/bots"
	"SigCouncil/internal/services/calibrate"
	"SigCouncil/internal/services/consensus"
	"SigCouncil/internal/services/levels"
	"SigCouncil/internal/services/optimizer"
	"SigCouncil/internal/services/regime"
	"SigCouncil/internal/services/tracker"
	"SigCouncil/internal/usecase"
	pkgcache "SigCouncil/pkg/cache"
	pkgch "SigCouncil/pkg/clickhouse"
	"SigCouncil/pkg/config"
	xhttp "SigCouncil/pkg/http"
	pkgkafka "SigCouncil/pkg/kafka"
	applogger "SigCouncil/pkg/logger"
	"SigCouncil/pkg/metrics"
	"SigCouncil/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level, format := "info", "json"
	if cfg.Environment == "development" {
		level, format = "debug", "console"
	}
	return applogger.New(&applogger.Config{
		Level:  level,
		Format: format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and runs the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SchemaStatements()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer for inbound outcome events.
// Returns nil when no consumer topic is configured; outcomes then arrive from
// the price feed only.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Kafka.Consumer.Topic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideWeightStore creates the Redis-backed weight snapshot store.
func ProvideWeightStore(cfg *config.Config) (repository.WeightStore, error) {
	return internalrepo.NewRedisWeightStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
}

// ProvideRecommendationStore creates the ClickHouse recommendation history.
func ProvideRecommendationStore(ch *pkgch.Client) repository.RecommendationStore {
	return internalrepo.NewCHRecommendationStore(ch)
}

// ProvideOutcomeStore creates the ClickHouse outcome history.
func ProvideOutcomeStore(ch *pkgch.Client) repository.OutcomeStore {
	return internalrepo.NewCHOutcomeStore(ch)
}

// ProvidePublisher creates the Kafka recommendation publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvidePriceFeed creates the WebSocket price feed client.
func ProvidePriceFeed(cfg *config.Config, log *applogger.Logger) *pricefeed.Client {
	return pricefeed.New(
		cfg.PriceFeed.APIKey,
		cfg.PriceFeed.WebSocketURL,
		cfg.Scan.Assets,
		cfg.PriceFeed.ReconnectDelay,
		cfg.PriceFeed.PingInterval,
		log,
	)
}

// ProvideMarketProvider creates the candle-backed market data provider.
func ProvideMarketProvider(ch *pkgch.Client, feed *pricefeed.Client, log *applogger.Logger) domsvc.MarketDataProvider {
	p := internalrepo.NewCHMarketProvider(ch, feed)
	p.SetLogger(log)
	return p
}

// ProvideClassifier creates the regime classifier with caching. With Redis
// configured, classifications go through the layered cache so replicas share
// them; otherwise a process-local cache is used.
func ProvideClassifier(cfg *config.Config) domsvc.RegimeClassifier {
	inner := regime.NewHTTPClassifier(cfg)

	if host, port, err := splitHostPort(cfg.Redis.Addr); err == nil {
		redisCache, rerr := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(host),
			pkgcache.WithRedisPort(port),
			pkgcache.WithRedisPassword(cfg.Redis.Password),
			pkgcache.WithRedisDB(cfg.Redis.DB),
		)
		if rerr == nil {
			layered := pkgcache.NewLayeredCache(redisCache)
			return regime.NewCachedClassifierWithCache(inner, layered, cfg.Regime.CacheTTL)
		}
	}
	return regime.NewCachedClassifier(inner, cfg.Regime.CacheTTL)
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// ProvideBots builds the bot roster.
func ProvideBots(cfg *config.Config) []domsvc.BotEvaluator {
	return bots.Roster(cfg)
}

// ProvideCalibrator creates the confidence calibrator.
func ProvideCalibrator(cfg *config.Config) (*calibrate.Calibrator, error) {
	if cfg.Scan.Calibration.B != 0 {
		return calibrate.New(calibrate.WithParams(cfg.Scan.Calibration.A, cfg.Scan.Calibration.B))
	}
	return calibrate.New()
}

// ProvideAggregator creates the consensus aggregator.
func ProvideAggregator(cfg *config.Config) *consensus.Aggregator {
	return consensus.NewAggregator(cfg.Scan.Quorum, consensus.NewDisagreementAnalyzer(cfg.Scan.Alpha))
}

// ProvideSynthesizer creates the level synthesizer.
func ProvideSynthesizer(cfg *config.Config) *levels.Synthesizer {
	opts := []levels.Option{}
	if cfg.Scan.TrimFraction > 0 {
		opts = append(opts, levels.WithTrimFraction(cfg.Scan.TrimFraction))
	}
	if cfg.Scan.MinProposals > 0 {
		opts = append(opts, levels.WithMinProposals(cfg.Scan.MinProposals))
	}
	return levels.NewSynthesizer(opts...)
}

// ProvideTracker creates the performance tracker.
func ProvideTracker(cfg *config.Config) *tracker.Tracker {
	opts := []tracker.Option{}
	if cfg.Tracker.Window > 0 {
		opts = append(opts, tracker.WithWindow(cfg.Tracker.Window))
	}
	if cfg.Tracker.ReinstateWindow > 0 {
		opts = append(opts, tracker.WithReinstateWindow(cfg.Tracker.ReinstateWindow))
	}
	opts = append(opts, tracker.WithExpiredAsFailure(cfg.Tracker.ExpiredAsFailure))
	return tracker.New(opts...)
}

// ProvideOptimizer creates the weight optimizer.
func ProvideOptimizer(cfg *config.Config, store repository.WeightStore, log *applogger.Logger) *optimizer.Optimizer {
	opts := []optimizer.Option{}
	if cfg.Optimizer.LearningRate > 0 {
		opts = append(opts, optimizer.WithLearningRate(cfg.Optimizer.LearningRate))
	}
	if cfg.Optimizer.Decay > 0 {
		opts = append(opts, optimizer.WithDecay(cfg.Optimizer.Decay))
	}
	if cfg.Optimizer.MaxWeight > 0 {
		opts = append(opts, optimizer.WithWeightBounds(cfg.Optimizer.MinWeight, cfg.Optimizer.MaxWeight))
	}
	return optimizer.New(store, log, opts...)
}

// ProvideLimiter creates the outbound call rate limiter.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	perSecond, burst := cfg.RateLimit.Rate, cfg.RateLimit.Burst
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return ratelimit.New(perSecond, burst)
}

// ProvideOutcomeUseCase creates the outcome monitor.
func ProvideOutcomeUseCase(
	trk *tracker.Tracker,
	opt *optimizer.Optimizer,
	store repository.OutcomeStore,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.OutcomeUseCase {
	return usecase.NewOutcomeUseCase(trk, opt, store, m, log, cfg.Outcomes.Expiry)
}

// ProvideScanUseCase wires the scan from its collaborators.
func ProvideScanUseCase(
	cfg *config.Config,
	market domsvc.MarketDataProvider,
	evaluators []domsvc.BotEvaluator,
	classifier domsvc.RegimeClassifier,
	calibrator *calibrate.Calibrator,
	aggregator *consensus.Aggregator,
	synthesizer *levels.Synthesizer,
	trk *tracker.Tracker,
	opt *optimizer.Optimizer,
	outcomes *usecase.OutcomeUseCase,
	store repository.RecommendationStore,
	pub repository.Publisher,
	m repository.Metrics,
	limiter *ratelimit.Limiter,
	log *applogger.Logger,
) *usecase.ScanUseCase {
	return usecase.NewScanUseCase(usecase.ScanDeps{
		Market:      market,
		Bots:        evaluators,
		Classifier:  classifier,
		Calibrator:  calibrator,
		Aggregator:  aggregator,
		Synthesizer: synthesizer,
		Tracker:     trk,
		Optimizer:   opt,
		Outcomes:    outcomes,
		Store:       store,
		Publisher:   pub,
		Metrics:     m,
		Limiter:     limiter,
		Logger:      log,
		Workers:     cfg.Scan.Workers,
		BotTimeout:  cfg.Scan.BotTimeout,
	})
}

// ProvideKafkaOutcomesHandler registers the handler for the outcomes topic.
func ProvideKafkaOutcomesHandler(cfg *config.Config, outcomes *usecase.OutcomeUseCase, m repository.Metrics) *usecase.KafkaOutcomesHandler {
	if cfg.Kafka.Consumer.Topic == "" {
		return nil
	}
	return usecase.NewKafkaOutcomesHandler(cfg.Kafka.Consumer.Topic, outcomes, m)
}

// ProvideTickPipeline builds the middleware between the price feed and
// outcome detection.
func ProvideTickPipeline(outcomes *usecase.OutcomeUseCase, m repository.Metrics) *mid.TickPipeline {
	return mid.NewTickPipeline(outcomes, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
}

// ProvideHTTPHandler creates the read-only HTTP surface.
func ProvideHTTPHandler(
	log *applogger.Logger,
	recs repository.RecommendationStore,
	outs repository.OutcomeStore,
	trk *tracker.Tracker,
	opt *optimizer.Optimizer,
) xhttp.Handler {
	return api.NewCouncilHandler(log, recs, outs, trk, opt)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	scan *usecase.ScanUseCase,
	outcomes *usecase.OutcomeUseCase,
	opt *optimizer.Optimizer,
	trk *tracker.Tracker,
	pipeline *mid.TickPipeline,
	feed *pricefeed.Client,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaOutcomesHandler,
	httpHandler xhttp.Handler,
	ch *pkgch.Client,
	weights repository.WeightStore,
	pub repository.Publisher,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	deps := server.Deps{
		Config:    cfg,
		Logger:    log,
		Scan:      scan,
		Outcomes:  outcomes,
		Optimizer: opt,
		Tracker:   trk,
		Pipeline:  pipeline,
		Feed:      feed,
		Consumer:  consumer,
		HTTP:      httpHandler,
		CH:        ch,
		Closers:   []func() error{weights.Close, pub.Close},
	}
	if kh != nil {
		deps.Handler = kh
	}
	return server.New(deps)
}
