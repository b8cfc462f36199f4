package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// HTTP stores HTTP server settings.
type HTTP struct {
	Port int
}

// DB stores Postgres connection settings.
type DB struct {
	Host    string
	Port    string
	User    string
	Pass    string
	Name    string
	SSLMode string
}

// DSN builds a pgx connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Pass, d.Host, d.Port, d.Name, d.SSLMode)
}

// Rabbit stores broker connection settings.
type Rabbit struct {
	Host  string
	Port  int
	User  string
	Pass  string
	VHost string
}

// URL builds an amqp connection string.
func (r Rabbit) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", r.User, r.Pass, r.Host, r.Port, r.VHost)
}

// Redis stores redis connection settings for the location relay.
type Redis struct {
	Addr string
	DB   int
}

// Gateway stores settings for one HTTP collaborator (locator, orders).
type Gateway struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Dispatch stores consumer settings.
type Dispatch struct {
	Prefetch       int
	HandlerTimeout time.Duration
	RetryDelay     time.Duration
	// RetryMaxAttempts bounds redeliveries of deferred messages.
	// 0 keeps the retry-forever behavior.
	RetryMaxAttempts int
}

// Relay stores realtime relay settings.
type Relay struct {
	// ReportInterval is the default driver location sampling period.
	ReportInterval time.Duration
}

// Config stores all settings for both processes.
type Config struct {
	HTTP     HTTP
	DB       DB
	Rabbit   Rabbit
	Redis    Redis
	Locator  Gateway
	Orders   Gateway
	Dispatch Dispatch
	Relay    Relay
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := Default()

	cfg.HTTP.Port = envInt("PORT", cfg.HTTP.Port)

	cfg.DB.Host = envStr("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = envStr("DB_PORT", cfg.DB.Port)
	cfg.DB.User = envStr("DB_USER", cfg.DB.User)
	cfg.DB.Pass = envStr("DB_PASSWORD", cfg.DB.Pass)
	cfg.DB.Name = envStr("DB_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envStr("DB_SSLMODE", cfg.DB.SSLMode)

	cfg.Rabbit.Host = envStr("RABBIT_HOST", cfg.Rabbit.Host)
	cfg.Rabbit.Port = envInt("RABBIT_PORT", cfg.Rabbit.Port)
	cfg.Rabbit.User = envStr("RABBIT_USER", cfg.Rabbit.User)
	cfg.Rabbit.Pass = envStr("RABBIT_PASSWORD", cfg.Rabbit.Pass)
	cfg.Rabbit.VHost = envStr("RABBIT_VHOST", cfg.Rabbit.VHost)

	cfg.Redis.Addr = envStr("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.DB = envInt("REDIS_DB", cfg.Redis.DB)

	loadGateway(&cfg.Locator, "LOCATOR")
	loadGateway(&cfg.Orders, "ORDERS")

	cfg.Dispatch.Prefetch = envInt("DISPATCH_PREFETCH", cfg.Dispatch.Prefetch)
	cfg.Dispatch.HandlerTimeout = envDuration("DISPATCH_TIMEOUT", cfg.Dispatch.HandlerTimeout)
	cfg.Dispatch.RetryDelay = envDuration("DISPATCH_RETRY_DELAY", cfg.Dispatch.RetryDelay)
	cfg.Dispatch.RetryMaxAttempts = envInt("DISPATCH_RETRY_MAX_ATTEMPTS", cfg.Dispatch.RetryMaxAttempts)

	cfg.Relay.ReportInterval = envDuration("RELAY_REPORT_INTERVAL", cfg.Relay.ReportInterval)

	fs := pflag.NewFlagSet("delivery-dispatch", pflag.ContinueOnError)
	fs.IntVarP(&cfg.HTTP.Port, "port", "p", cfg.HTTP.Port, "port to listen on")
	fs.IntVar(&cfg.Dispatch.Prefetch, "prefetch", cfg.Dispatch.Prefetch, "dispatch consumer prefetch")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.HTTP.Port)
	}
	if cfg.Dispatch.Prefetch <= 0 {
		cfg.Dispatch.Prefetch = 1
	}
	// The retry loops run at least one attempt; zero would skip the call
	// entirely and report success.
	if cfg.Locator.MaxAttempts < 1 {
		cfg.Locator.MaxAttempts = 1
	}
	if cfg.Orders.MaxAttempts < 1 {
		cfg.Orders.MaxAttempts = 1
	}
	return cfg, nil
}

func loadGateway(g *Gateway, prefix string) {
	g.BaseURL = envStr(prefix+"_URL", g.BaseURL)
	g.Timeout = envDuration(prefix+"_TIMEOUT", g.Timeout)
	g.MaxAttempts = envInt(prefix+"_RETRY_MAX_ATTEMPTS", g.MaxAttempts)
	g.BaseDelay = envDuration(prefix+"_RETRY_BASE_DELAY", g.BaseDelay)
	g.MaxDelay = envDuration(prefix+"_RETRY_MAX_DELAY", g.MaxDelay)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
