package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	app "github.com/mohammadpnp/job-feed-import/internal/application/importer"
	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
	"github.com/mohammadpnp/job-feed-import/internal/domain/queue"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/db"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/feed"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/metrics"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/mongostore"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/notify"
	infraqueue "github.com/mohammadpnp/job-feed-import/internal/infrastructure/queue"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/repository"
	"github.com/mohammadpnp/job-feed-import/internal/platform/config"
	"github.com/mohammadpnp/job-feed-import/internal/scheduler"
)

// Container owns every long-lived dependency of a process. Both binaries
// build one; only the API starts the worker, scheduler and relay.
type Container struct {
	Config config.Config
	Logger *slog.Logger

	Redis   *redis.Client
	Queue   *infraqueue.RedisQueue
	Policy  queue.Policy
	Runs    importrun.Repository
	Store   job.Store
	JobRead job.QueryRepository

	Metrics   *metrics.Collectors
	Hub       *notify.Hub
	Publisher importrun.Publisher
	relay     *notify.RedisPublisher

	StartImport app.StartImport
	RetryImport app.RetryImport
	GetRun      app.GetImportRun
	ListRuns    app.ListImportRuns
	GetJob      app.GetJobRecord
	QueueAdmin  app.QueueAdmin
	Prune       *app.PruneImportRuns
	Runner      *app.ImportRunner

	closers []func()
}

func NewContainer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{Config: cfg, Logger: logger}

	if err := c.openStore(ctx); err != nil {
		c.Close()
		return nil, err
	}

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	c.closers = append(c.closers, func() { _ = c.Redis.Close() })
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	c.Policy = queue.DefaultPolicy()
	c.Policy.MaxAttempts = cfg.Queue.MaxAttempts
	c.Policy.BackoffBase = cfg.Queue.BackoffBase
	c.Policy.LeaseDuration = cfg.Queue.Lease
	c.Queue = infraqueue.NewRedisQueue(c.Redis, cfg.Queue.Name, c.Policy, logger)

	c.Metrics = metrics.New(prometheus.NewRegistry())
	c.Hub = notify.NewHub(logger)
	c.Publisher = c.buildPublisher()

	fetcher := feed.NewFetcher(feed.NewLocalSource(cfg.FeedBaseDir), feed.FetcherConfig{Timeout: cfg.FetchTimeout})
	reader := feed.NewReader(fetcher, c.Metrics, logger)
	batches := app.NewBatchProcessor(app.NewUpsertEngine(c.Store), app.BatchProcessorConfig{BatchSize: cfg.BatchSize}, logger)
	c.Runner = app.NewImportRunner(c.Runs, reader, batches, c.Publisher, c.Metrics, logger)

	c.StartImport = app.NewStartImport(c.Runs, c.Queue, logger)
	c.RetryImport = app.NewRetryImport(c.Runs, c.StartImport, logger)
	c.GetRun = app.NewGetImportRun(c.Runs)
	c.ListRuns = app.NewListImportRuns(c.Runs)
	c.GetJob = app.NewGetJobRecord(c.JobRead)
	c.QueueAdmin = app.NewQueueAdmin(c.Queue)
	c.Prune = app.NewPruneImportRuns(c.Runs, cfg.Scheduler.RunRetention, logger)

	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	switch c.Config.StoreDriver {
	case config.StoreMongo:
		client, err := mongostore.Connect(ctx, c.Config.Mongo.URI)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, func() { _ = client.Disconnect(context.Background()) })

		database := client.Database(c.Config.Mongo.Database)
		if err := mongostore.EnsureIndexes(ctx, database); err != nil {
			return err
		}
		c.Runs = mongostore.NewRunRepository(database)
		c.Store = mongostore.NewJobStore(database)
		c.JobRead = mongostore.NewJobQuery(database)
		return nil

	default:
		gdb, err := db.Open(c.Config.DatabaseURL)
		if err != nil {
			return err
		}
		if sqlDB, err := gdb.DB(); err == nil {
			c.closers = append(c.closers, func() { _ = sqlDB.Close() })
		}
		if err := db.Migrate(ctx, gdb); err != nil {
			return err
		}

		pool, err := pgxpool.New(ctx, c.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("create pgx pool: %w", err)
		}
		c.closers = append(c.closers, pool.Close)

		c.Runs = repository.NewImportRunRepository(gdb)
		c.Store = repository.NewJobUpsertRepository(pool)
		c.JobRead = repository.NewJobQueryRepository(gdb)
		return nil
	}
}

// buildPublisher fans events out to the log, Kafka when brokers are set, and
// either Redis pub/sub or the local websocket hub. With a Redis channel the
// hub is fed by the relay instead so every replica sees every event once.
func (c *Container) buildPublisher() importrun.Publisher {
	publishers := []importrun.Publisher{notify.NewLogPublisher(c.Logger)}

	if c.Config.Notify.RedisChannel != "" {
		c.relay = notify.NewRedisPublisher(c.Redis, c.Config.Notify.RedisChannel, c.Logger)
		publishers = append(publishers, c.relay)
	} else {
		publishers = append(publishers, c.Hub)
	}

	if len(c.Config.Notify.KafkaBrokers) > 0 {
		writer := notify.NewKafkaWriter(c.Config.Notify.KafkaBrokers, c.Config.Notify.KafkaTopic, c.Logger)
		kafkaPublisher := notify.NewKafkaPublisher(writer, c.Logger)
		c.closers = append(c.closers, func() { _ = kafkaPublisher.Close() })
		publishers = append(publishers, kafkaPublisher)
	}

	return notify.NewFanout(publishers...)
}

func (c *Container) NewWorker() *app.ImportWorker {
	return app.NewImportWorker(c.Queue, c.Runner, app.ImportWorkerConfig{
		Workers: c.Config.Queue.Concurrency,
		Policy:  c.Policy,
	}, c.Logger)
}

func (c *Container) NewScheduler() *scheduler.Scheduler {
	return scheduler.New(scheduler.Config{
		Sources:         c.Config.Scheduler.Sources,
		ImportSchedule:  c.Config.Scheduler.ImportSchedule,
		Spacing:         c.Config.Scheduler.Spacing,
		CleanupSchedule: c.Config.Scheduler.CleanupSchedule,
	}, c.StartImport, c.Prune, c.Logger)
}

// StartBackground runs the Redis relay and the queue depth sampler until ctx
// is done.
func (c *Container) StartBackground(ctx context.Context) {
	if c.relay != nil {
		go func() {
			if err := c.relay.Relay(ctx, c.Hub.Deliver); err != nil && ctx.Err() == nil {
				c.Logger.Error("redis event relay stopped", "err", err)
			}
		}()
	}
	go c.Metrics.SampleQueue(ctx, c.Queue, 15*time.Second, c.Logger)
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	if c.Hub != nil {
		c.Hub.Close()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
