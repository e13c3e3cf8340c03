package di

import (
	"context"
	"fmt"
	"time"

	"PairWatch/internal/alert"
	"PairWatch/internal/analytics"
	"PairWatch/internal/domain/repository"
	"PairWatch/internal/handler/api"
	"PairWatch/internal/market/resampler"
	"PairWatch/internal/market/tickbuffer"
	mid "PairWatch/internal/middleware"
	internalrepo "PairWatch/internal/repository"
	"PairWatch/internal/service/binance"
	"PairWatch/internal/usecase"
	"PairWatch/pkg/cache"
	"PairWatch/pkg/config"
	pkgkafka "PairWatch/pkg/kafka"
	"PairWatch/pkg/logger"
	"PairWatch/pkg/metrics"
	"PairWatch/pkg/server"
)

// ProvideLogger creates the application logger. With kafka.publish
// enabled, aggregated warn/error logs are teed to a side topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	if cfg.Kafka.Publish && producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".logs",
			Publisher:      logPublisher{producer},
		})
	}
	return l, nil
}

// logPublisher adapts the Kafka producer to the log collector's
// publisher interface.
type logPublisher struct {
	p *pkgkafka.Producer
}

func (lp logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return lp.p.Publish(ctx, topic, nil, payload)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the tick
// tee is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Publish {
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

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTickBuffer creates the in-memory tick store.
func ProvideTickBuffer(cfg *config.Config) *tickbuffer.Buffer {
	return tickbuffer.New(
		tickbuffer.WithTolerance(cfg.Market.Tolerance),
		tickbuffer.WithRetention(cfg.Market.RetentionHorizon),
	)
}

// ProvideResampler creates the multi-resolution bar builder.
func ProvideResampler(cfg *config.Config, m repository.Metrics) *resampler.Resampler {
	return resampler.New(
		resampler.WithIntervals(cfg.Intervals()...),
		resampler.WithMaxBars(cfg.Market.MaxBars),
		resampler.WithSealHook(func(symbol string, interval time.Duration, sealed int) {
			m.RecordBarsSealed(symbol, repository.FormatInterval(interval), sealed)
		}),
	)
}

// ProvideTickPublisher creates the Kafka tick tee, or nil when
// publishing is disabled.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
}

// ProvideCache creates the response cache per config, or nil when
// caching is disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize)), nil
	case "redis":
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	case "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MaxSize)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// ProvideAnalyticsEngine creates the pair analytics engine.
func ProvideAnalyticsEngine(res *resampler.Resampler, l *logger.Logger, m repository.Metrics, cfg *config.Config) *analytics.Engine {
	return analytics.NewEngine(res, l, m,
		analytics.WithWindow(cfg.Analytics.DefaultWindowSize),
		analytics.WithSignificance(cfg.Analytics.ADFSignificance),
		analytics.WithMinObservations(cfg.Analytics.ADFMinObservations),
		analytics.WithMaxPoints(cfg.Analytics.MaxPoints),
	)
}

// ProvideAlertRegistry creates the z-score alert rule registry.
func ProvideAlertRegistry(l *logger.Logger, m repository.Metrics) *alert.Registry {
	return alert.NewRegistry(l, m)
}

// ProvideTickProcessor creates the ingest fold (buffer + resampler +
// optional Kafka tee).
func ProvideTickProcessor(
	buffer *tickbuffer.Buffer,
	res *resampler.Resampler,
	pub repository.Publisher,
	m repository.Metrics,
	l *logger.Logger,
	cfg *config.Config,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(buffer, res, pub, m, l, cfg.Feed.Source)
}

// ProvideTickPipeline creates the validation/throttle stage between the
// feed and the processor.
func ProvideTickPipeline(proc *usecase.TickProcessor, m repository.Metrics, cfg *config.Config) *mid.TickPipeline {
	return mid.NewTickPipeline(proc, m,
		mid.WithMaxRPS(cfg.Feed.MaxRPS),
		mid.WithBufferSize(cfg.Feed.BufferSize),
	)
}

// ProvideTickCollector creates the WebSocket collector, or nil when the
// feed source is kafka.
func ProvideTickCollector(
	proc *usecase.TickProcessor,
	pipe *mid.TickPipeline,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.TickCollector {
	if cfg.Feed.Source != "binance" {
		return nil
	}
	stream := binance.New(
		cfg.Feed.WebSocketURL,
		cfg.Market.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
	)
	return usecase.NewTickCollector(stream, proc, m, pipe)
}

// ProvideKafkaConsumer creates the tick topic consumer, or nil when the
// feed source is binance.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Feed.Source != "kafka" {
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

// ProvideKafkaTickSource registers the handler for the tick topic.
func ProvideKafkaTickSource(pipe *mid.TickPipeline, proc *usecase.TickProcessor, m repository.Metrics, cfg *config.Config) *usecase.KafkaTickSource {
	return usecase.NewKafkaTickSource(cfg.Kafka.Topic, pipe, proc, m)
}

// ProvideMarketQuery creates the read-side series use case.
func ProvideMarketQuery(buffer *tickbuffer.Buffer, res *resampler.Resampler) *usecase.MarketQuery {
	return usecase.NewMarketQuery(buffer, res)
}

// ProvidePairAnalytics creates the pair analytics use case.
func ProvidePairAnalytics(
	engine *analytics.Engine,
	alerts *alert.Registry,
	cacheSvc cache.Service,
	l *logger.Logger,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.PairAnalytics {
	return usecase.NewPairAnalytics(engine, alerts, cacheSvc, cfg.Cache.TTL, l, m)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	l *logger.Logger,
	market *usecase.MarketQuery,
	pairs *usecase.PairAnalytics,
	collector *usecase.TickCollector,
) *api.Handler {
	var feed api.FeedStatus
	if collector != nil {
		feed = collector
	}
	return api.NewHandler(l, market, pairs, feed)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTickSource,
	pipe *mid.TickPipeline,
	proc *usecase.TickProcessor,
	handler *api.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, l, collector, consumer, kh, pipe, proc)
	app.SetHTTPHandler(handler)
	return app
}
