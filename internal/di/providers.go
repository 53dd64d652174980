package di

import (
	"context"
	"fmt"
	"time"

	"SentiFlow/internal/broadcast"
	"SentiFlow/internal/domain/repository"
	"SentiFlow/internal/handler/api"
	internalrepo "SentiFlow/internal/repository"
	"SentiFlow/internal/service/scoring"
	"SentiFlow/internal/service/sources"
	"SentiFlow/internal/stats"
	"SentiFlow/internal/usecase"
	"SentiFlow/pkg/cache"
	pkgch "SentiFlow/pkg/clickhouse"
	"SentiFlow/pkg/config"
	pkgkafka "SentiFlow/pkg/kafka"
	"SentiFlow/pkg/logger"
	"SentiFlow/pkg/metrics"
	"SentiFlow/pkg/server"

	"github.com/labstack/echo/v4"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level := "info"
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return logger.New(&logger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideStats creates the stats registry fronting the Prometheus recorder.
func ProvideStats() *stats.Registry {
	return stats.NewRegistry(metrics.New())
}

// ProvideMetrics exposes the registry as the domain metrics interface.
func ProvideMetrics(reg *stats.Registry) repository.Metrics {
	return reg
}

// ProvideDedupIndex picks Redis when configured, in-memory otherwise.
func ProvideDedupIndex(cfg *config.Config) (repository.DedupIndex, error) {
	if !cfg.Redis.Enabled {
		return internalrepo.NewCacheDedupIndex(cache.NewMemoryCache()), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	// Layered keeps hot dedup lookups in memory; the atomic check-and-set
	// still goes through Redis.
	return internalrepo.NewCacheDedupIndex(cache.NewLayeredCache(rc)), nil
}

// ProvideScorer selects the scoring backend.
func ProvideScorer(cfg *config.Config) repository.Scorer {
	if cfg.Scoring.Mode == "http" {
		return scoring.NewHTTPScorer(cfg.Scoring.ServiceURL, cfg.Scoring.CallTimeout)
	}
	return scoring.NewLexiconScorer()
}

// ProvideKafkaSource creates the inbound news topic source when configured.
// It doubles as the consumer's message handler.
func ProvideKafkaSource(cfg *config.Config) *sources.KafkaSource {
	if !cfg.Kafka.Enabled || cfg.Kafka.NewsTopic == "" {
		return nil
	}
	return sources.NewKafkaSource(cfg.Kafka.NewsTopic, cfg.Ingest.QueueSize, nil)
}

// ProvideSources assembles the configured ingestion sources.
func ProvideSources(cfg *config.Config, ks *sources.KafkaSource) []repository.Source {
	var srcs []repository.Source
	for _, feed := range cfg.Ingest.Feeds {
		srcs = append(srcs, sources.NewHTTPSource(feed.Name, feed.URL, cfg.Ingest.FetchTimeout, nil))
	}
	if cfg.Ingest.Simulated.Enabled {
		srcs = append(srcs, sources.NewSimSource(cfg.Ingest.Simulated.ItemsPerPoll, time.Now().UnixNano(), nil))
	}
	if ks != nil {
		srcs = append(srcs, ks)
	}
	return srcs
}

// ProvideKafkaProducer creates the Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
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

// ProvidePublisher wraps the producer as the update sink, or nil.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config, log *logger.Logger) repository.Publisher {
	if producer == nil {
		return nil
	}
	pub := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.UpdatesTopic)
	if cfg.Kafka.LogsTopic != "" {
		if lp, ok := pub.(logger.Publisher); ok {
			log.AddCollector(&logger.CollectionConfig{
				TimeInterval:   30 * time.Second,
				CountThreshold: 100,
				Topic:          cfg.Kafka.LogsTopic,
				Publisher:      lp,
			})
		}
	}
	return pub
}

// ProvideKafkaConsumer creates the inbound news consumer, or nil.
func ProvideKafkaConsumer(cfg *config.Config, ks *sources.KafkaSource) (*pkgkafka.Consumer, error) {
	if ks == nil {
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

// ProvideClickHouseClient creates the archive client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
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
	if err := client.InitSchema(ctx, internalrepo.ScoreSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideScoreStore wraps the ClickHouse client as the archive sink, or nil.
func ProvideScoreStore(client *pkgch.Client) repository.ScoreStore {
	if client == nil {
		return nil
	}
	return internalrepo.NewClickHouseStore(client.DB())
}

// ProvideBroadcaster creates the subscription broadcaster.
func ProvideBroadcaster(cfg *config.Config, m repository.Metrics, log *logger.Logger) *broadcast.Broadcaster {
	return broadcast.New(broadcast.Config{
		QueueSize:     cfg.Broadcast.QueueSize,
		SendTimeout:   cfg.Broadcast.SendTimeout,
		PingRateLimit: cfg.Broadcast.PingRateLimit,
	}, m, log, nil)
}

// ProvideScheduler creates the ingest scheduler.
func ProvideScheduler(
	srcs []repository.Source,
	dedup repository.DedupIndex,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.IngestScheduler {
	return usecase.NewIngestScheduler(
		srcs, dedup, m, log,
		cfg.Ingest.PollInterval, cfg.Ingest.DedupHorizon, cfg.Ingest.QueueSize,
		usecase.WithIngestBackoff(cfg.Ingest.BackoffBase, cfg.Ingest.BackoffCap, cfg.Ingest.DegradedAfter),
		usecase.WithIngestFetchTimeout(cfg.Ingest.FetchTimeout),
	)
}

// ProvideGateway creates the scoring gateway.
func ProvideGateway(scorer repository.Scorer, m repository.Metrics, log *logger.Logger, cfg *config.Config) *usecase.ScoringGateway {
	return usecase.NewScoringGateway(scorer, cfg.Scoring.CallTimeout, m, log, nil)
}

// ProvideAggregator creates the signal aggregator.
func ProvideAggregator(cfg *config.Config, m repository.Metrics, log *logger.Logger) *usecase.SignalAggregator {
	return usecase.NewSignalAggregator(usecase.AggregatorConfig{
		Window:        cfg.Aggregate.Window,
		Alpha:         cfg.Aggregate.Alpha,
		ThresholdBuy:  cfg.Aggregate.ThresholdBuy,
		ThresholdSell: cfg.Aggregate.ThresholdSell,
		Normalizer:    cfg.Aggregate.Normalizer,
		Precision:     cfg.Aggregate.Precision,
		Shards:        cfg.Aggregate.Shards,
	}, m, log, nil)
}

// ProvidePipeline connects the stages to the broadcaster and sinks.
func ProvidePipeline(
	scheduler *usecase.IngestScheduler,
	gateway *usecase.ScoringGateway,
	aggregator *usecase.SignalAggregator,
	broadcaster *broadcast.Broadcaster,
	publisher repository.Publisher,
	store repository.ScoreStore,
	cfg *config.Config,
	log *logger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(
		scheduler, gateway, aggregator, broadcaster,
		publisher, store,
		cfg.Scoring.BatchSize, cfg.Scoring.MaxWait, log,
	)
}

// handlerGroup registers every route set on the echo server.
type handlerGroup struct {
	rest *api.SentimentHandler
	ws   *api.WSHandler
}

func (g *handlerGroup) RegisterRoutes(e *echo.Echo) {
	g.rest.RegisterRoutes(e)
	g.ws.RegisterRoutes(e)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	pipeline *usecase.Pipeline,
	broadcaster *broadcast.Broadcaster,
	consumer *pkgkafka.Consumer,
	ks *sources.KafkaSource,
	chClient *pkgch.Client,
	reg *stats.Registry,
) *server.App {
	var newsHandler pkgkafka.MessageHandler
	if ks != nil {
		newsHandler = ks
	}
	app := server.New(cfg, log, pipeline, broadcaster, consumer, newsHandler, chClient)

	rest := api.NewSentimentHandler(log, pipeline.Aggregator(), pipeline.Gateway(), reg)
	ws := api.NewWSHandler(log, broadcaster)
	app.SetHTTPHandler(&handlerGroup{rest: rest, ws: ws})
	return app
}
