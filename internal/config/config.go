package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/caller"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/repo"
)

// EnvConfigPath — переменная с путём к YAML-файлу.
const EnvConfigPath = "UVD_CONFIG"

// ErrInvalid — конфигурация не прошла проверку.
var ErrInvalid = errors.New("invalid config")

// Config — конфигурация uvd-coordinator и uvd-cli.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Platform   PlatformConfig   `yaml:"platform"`
	Caller     CallerConfig     `yaml:"caller"`
	Queue      QueueConfig      `yaml:"queue"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
}

// LogConfig — уровень и формат логов.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | text
}

// HTTPConfig — адрес /healthz и /metrics.
type HTTPConfig struct {
	Port string `yaml:"port"`
}

// StoreConfig — долговременное хранилище заявок.
type StoreConfig struct {
	Driver     string      `yaml:"driver"` // postgres | sqlite | redis | memory
	DSN        string      `yaml:"dsn"`
	SQLitePath string      `yaml:"sqlite_path"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig — подключение к Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RabbitMQConfig — брокер для нажатий и событий.
type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Prefetch int    `yaml:"prefetch"`
}

// PlatformConfig — REST API платформы.
type PlatformConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// CallerConfig — повторы и ограничение частоты внешних вызовов.
type CallerConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxJitter   time.Duration `yaml:"max_jitter"`

	// RateLimit — запросов в секунду (0 — без ограничения).
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// QueueConfig — очередь задач записи.
type QueueConfig struct {
	Capacity    int           `yaml:"capacity"`
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

// ReconcilerConfig — периодическая сверка.
type ReconcilerConfig struct {
	Schedule  string        `yaml:"schedule"`
	Retention time.Duration `yaml:"retention"`
	Disabled  bool          `yaml:"disabled"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: "INFO", Format: "json"},
		HTTP: HTTPConfig{Port: "8085"},
		Store: StoreConfig{
			Driver:     repo.DriverPostgres,
			SQLitePath: "uvd.db",
			Redis:      RedisConfig{Addr: "localhost:6379"},
		},
		RabbitMQ: RabbitMQConfig{Prefetch: 16},
		Platform: PlatformConfig{Timeout: 15 * time.Second},
		Caller: CallerConfig{
			MaxAttempts: 5,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    30 * time.Second,
			MaxJitter:   250 * time.Millisecond,
			RateLimit:   45,
			Burst:       5,
		},
		Queue:      QueueConfig{Capacity: 1024, TaskTimeout: 30 * time.Second},
		Reconciler: ReconcilerConfig{Schedule: "@every 10m"},
	}
}

// Load собирает конфигурацию: defaults, затем файл, затем окружение.
// Пустой path — берётся из UVD_CONFIG; если и там пусто, файл не читается.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(bytes.NewReader(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode читает YAML поверх cfg; неизвестные ключи — ошибка.
func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv перекрывает поля значениями из окружения.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("HTTP_PORT", &cfg.HTTP.Port)

	str("STORE_DRIVER", &cfg.Store.Driver)
	str("DB_URL", &cfg.Store.DSN)
	str("SQLITE_PATH", &cfg.Store.SQLitePath)
	str("REDIS_ADDR", &cfg.Store.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Store.Redis.Password)
	num("REDIS_DB", &cfg.Store.Redis.DB)
	str("REDIS_PREFIX", &cfg.Store.Redis.Prefix)

	str("RABBITMQ_URL", &cfg.RabbitMQ.URL)
	num("RABBITMQ_PREFETCH", &cfg.RabbitMQ.Prefetch)

	str("DISCORD_TOKEN", &cfg.Platform.Token)
	str("DISCORD_API_URL", &cfg.Platform.BaseURL)

	num("CALLER_MAX_ATTEMPTS", &cfg.Caller.MaxAttempts)
	num("CALLER_BURST", &cfg.Caller.Burst)
	if v, ok := lookup("CALLER_RATE_LIMIT"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("CALLER_RATE_LIMIT: %w", err))
		} else {
			cfg.Caller.RateLimit = f
		}
	}

	num("QUEUE_CAPACITY", &cfg.Queue.Capacity)

	str("RECONCILE_SCHEDULE", &cfg.Reconciler.Schedule)
	dur("RECONCILE_RETENTION", &cfg.Reconciler.Retention)
	if v, ok := lookup("RECONCILE_DISABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RECONCILE_DISABLED: %w", err))
		} else {
			cfg.Reconciler.Disabled = b
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: env: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Validate проверяет значения, которые компоненты не умеют исправить сами.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case repo.DriverPostgres, repo.DriverSQLite, repo.DriverRedis, repo.DriverMemory:
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalid, c.Store.Driver)
	}
	if c.Caller.RateLimit < 0 {
		return fmt.Errorf("%w: caller.rate_limit must not be negative", ErrInvalid)
	}
	if c.Caller.MaxDelay > 0 && c.Caller.BaseDelay > c.Caller.MaxDelay {
		return fmt.Errorf("%w: caller.base_delay exceeds caller.max_delay", ErrInvalid)
	}
	if c.Reconciler.Retention < 0 {
		return fmt.Errorf("%w: reconciler.retention must not be negative", ErrInvalid)
	}
	return nil
}

// RepoOptions возвращает параметры для repo.Open.
func (c *Config) RepoOptions() repo.Options {
	return repo.Options{
		Driver:     c.Store.Driver,
		DSN:        c.Store.DSN,
		SQLitePath: c.Store.SQLitePath,
		Redis: repo.RedisConfig{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Prefix:   c.Store.Redis.Prefix,
		},
	}
}

// CallerOptions возвращает конфигурацию caller.New.
func (c *Config) CallerOptions(logger *slog.Logger) caller.Config {
	cfg := caller.Config{
		MaxAttempts: c.Caller.MaxAttempts,
		BaseDelay:   c.Caller.BaseDelay,
		MaxDelay:    c.Caller.MaxDelay,
		MaxJitter:   c.Caller.MaxJitter,
		Logger:      logger,
	}
	if c.Caller.RateLimit > 0 {
		burst := max(c.Caller.Burst, 1)
		cfg.Limiter = rate.NewLimiter(rate.Limit(c.Caller.RateLimit), burst)
	}
	return cfg
}

// Addr возвращает адрес HTTP-сервера.
func (c *Config) Addr() string {
	return ":" + c.HTTP.Port
}
