package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Port        string
	StoreDriver string
	DatabaseURL string

	Mongo MongoConfig
	Redis RedisConfig
	Queue QueueConfig

	BatchSize    int
	FetchTimeout time.Duration
	FeedBaseDir  string

	Scheduler SchedulerConfig
	Notify    NotifyConfig

	LogLevel  string
	LogFormat string
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QueueConfig struct {
	Name        string
	Concurrency int
	MaxAttempts int
	BackoffBase time.Duration
	Lease       time.Duration
}

type SchedulerConfig struct {
	Enabled         bool
	Sources         []string
	ImportSchedule  string
	Spacing         time.Duration
	CleanupSchedule string
	RunRetention    time.Duration
}

type NotifyConfig struct {
	RedisChannel string
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads an optional .env file and then the environment. A missing env
// file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "job_importer"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Queue: QueueConfig{
			Name:        getEnv("QUEUE_NAME", "job-import"),
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 2),
			MaxAttempts: getEnvAsInt("QUEUE_MAX_ATTEMPTS", 3),
			BackoffBase: getEnvAsDuration("QUEUE_BACKOFF_BASE", 5*time.Second),
			Lease:       getEnvAsDuration("QUEUE_LEASE", 60*time.Second),
		},
		BatchSize:    getEnvAsInt("BATCH_SIZE", 50),
		FetchTimeout: getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
		FeedBaseDir:  getEnv("FEED_BASE_DIR", "."),
		Scheduler: SchedulerConfig{
			Enabled:         getEnvAsBool("SCHEDULER_ENABLED", false),
			Sources:         getEnvAsSlice("IMPORT_SOURCES", nil),
			ImportSchedule:  getEnv("IMPORT_SCHEDULE", "0 * * * *"),
			Spacing:         getEnvAsDuration("IMPORT_SPACING", 5*time.Second),
			CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "0 3 * * *"),
			RunRetention:    getEnvAsDuration("RUN_RETENTION", 720*time.Hour),
		},
		Notify: NotifyConfig{
			RedisChannel: os.Getenv("NOTIFY_REDIS_CHANNEL"),
			KafkaBrokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "job-import-events"),
		},
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.Queue.Concurrency <= 0 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be positive"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, errors.New("BATCH_SIZE must be positive"))
	}
	if c.Queue.MaxAttempts <= 0 {
		errs = append(errs, errors.New("QUEUE_MAX_ATTEMPTS must be positive"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("5s") or bare milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
