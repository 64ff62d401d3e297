package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
	Bootstrap    BootstrapConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Format  string
	Service string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig configures SLA notification delivery.
type NotificationConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
	WebhookURL   string
	FrontendURL  string
	TimeZone     string
	SendTimeout  time.Duration
}

// SLAConfig controls the monitoring cycle.
type SLAConfig struct {
	ScanInterval  time.Duration
	WarningWindow time.Duration
	Workers       int
	QueueSize     int
	CycleTimeout  time.Duration
	NotifyTimeout time.Duration
	BatchSize     int
	HistoryLimit  int
	HistoryTTL    time.Duration
	PolicyFile    string
	JobStore      string
	RunOnStart    bool
}

// BootstrapConfig seeds the first administrator.
type BootstrapConfig struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Job store drivers.
const (
	JobStoreMemory = "memory"
	JobStoreRedis  = "redis"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	scanInterval, err := getEnvAsDuration("SLA_SCAN_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	warningWindow, err := getEnvAsDuration("SLA_WARNING_WINDOW", "15m")
	if err != nil {
		return nil, err
	}
	cycleTimeout, err := getEnvAsDuration("SLA_CYCLE_TIMEOUT", "2m")
	if err != nil {
		return nil, err
	}
	notifyTimeout, err := getEnvAsDuration("SLA_NOTIFY_TIMEOUT", "1m")
	if err != nil {
		return nil, err
	}
	historyTTL, err := getEnvAsDuration("SLA_HISTORY_TTL", "168h")
	if err != nil {
		return nil, err
	}
	sendTimeout, err := getEnvAsDuration("NOTIFY_SEND_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "maintenance-sla"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  getEnv("LOG_FORMAT", "json"),
			Service: getEnv("APP_NAME", "maintenance-sla"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			SMTPHost:     os.Getenv("EMAIL_HOST"),
			SMTPPort:     getEnvAsInt("EMAIL_PORT", 587),
			SMTPUser:     os.Getenv("EMAIL_USER"),
			SMTPPassword: os.Getenv("EMAIL_PASS"),
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", getEnv("EMAIL_USER", "noreply@example.com")),
			WebhookURL:   os.Getenv("NOTIFY_WEBHOOK_URL"),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
			TimeZone:     getEnv("NOTIFY_TIME_ZONE", "Asia/Bangkok"),
			SendTimeout:  sendTimeout,
		},
		SLA: SLAConfig{
			ScanInterval:  scanInterval,
			WarningWindow: warningWindow,
			Workers:       getEnvAsInt("SLA_WORKERS", 1),
			QueueSize:     getEnvAsInt("SLA_QUEUE_SIZE", 16),
			CycleTimeout:  cycleTimeout,
			NotifyTimeout: notifyTimeout,
			BatchSize:     getEnvAsInt("SLA_BATCH_SIZE", 500),
			HistoryLimit:  getEnvAsInt("SLA_HISTORY_LIMIT", 100),
			HistoryTTL:    historyTTL,
			PolicyFile:    os.Getenv("SLA_POLICY_FILE"),
			JobStore:      strings.ToLower(getEnv("SLA_JOB_STORE", JobStoreMemory)),
			RunOnStart:    getEnvAsBool("SLA_RUN_ON_START", true),
		},
		Bootstrap: BootstrapConfig{
			AdminName:     getEnv("BOOTSTRAP_ADMIN_NAME", "Administrator"),
			AdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			AdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the monitor cannot run with.
func (c *Config) Validate() error {
	if c.SLA.ScanInterval <= 0 {
		return fmt.Errorf("SLA_SCAN_INTERVAL must be positive, got %s", c.SLA.ScanInterval)
	}
	if c.SLA.WarningWindow <= 0 {
		return fmt.Errorf("SLA_WARNING_WINDOW must be positive, got %s", c.SLA.WarningWindow)
	}
	if c.SLA.Workers <= 0 {
		return fmt.Errorf("SLA_WORKERS must be positive, got %d", c.SLA.Workers)
	}
	if c.SLA.QueueSize <= 0 {
		return fmt.Errorf("SLA_QUEUE_SIZE must be positive, got %d", c.SLA.QueueSize)
	}
	if c.SLA.CycleTimeout < 0 {
		return fmt.Errorf("SLA_CYCLE_TIMEOUT must not be negative, got %s", c.SLA.CycleTimeout)
	}
	if c.SLA.NotifyTimeout <= 0 {
		return fmt.Errorf("SLA_NOTIFY_TIMEOUT must be positive, got %s", c.SLA.NotifyTimeout)
	}
	if c.SLA.BatchSize < 0 {
		return fmt.Errorf("SLA_BATCH_SIZE must not be negative, got %d", c.SLA.BatchSize)
	}
	switch c.SLA.JobStore {
	case JobStoreMemory, JobStoreRedis:
	default:
		return fmt.Errorf("SLA_JOB_STORE must be %q or %q, got %q", JobStoreMemory, JobStoreRedis, c.SLA.JobStore)
	}
	if _, err := time.LoadLocation(c.Notification.TimeZone); err != nil {
		return fmt.Errorf("invalid NOTIFY_TIME_ZONE %q: %w", c.Notification.TimeZone, err)
	}
	return nil
}

// Location returns the zone used to display due times.
func (n NotificationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(n.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
