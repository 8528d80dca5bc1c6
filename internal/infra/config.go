package infra

import (
	"fmt"
	"time"

	"github.com/attaboy/lifestats/internal/leveling"
	"github.com/caarlos0/env/v11"
)

const insecureJWTSecret = "change-me-in-production"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Record store backend: memory or postgres
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`

	// Database
	DatabaseURL   string `env:"DATABASE_URL"`
	PGHost        string `env:"PGHOST" envDefault:"localhost"`
	PGPort        int    `env:"PGPORT" envDefault:"5432"`
	PGUser        string `env:"PGUSER" envDefault:"lifestats"`
	PGPassword    string `env:"PGPASSWORD" envDefault:"lifestats"`
	PGDatabase    string `env:"PGDATABASE" envDefault:"lifestats"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	NotifyChannel string `env:"PG_NOTIFY_CHANNEL" envDefault:"record_changes"`

	// HTTP
	APIPort            int    `env:"API_PORT" envDefault:"3100"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// JWT
	AuthEnabled bool          `env:"AUTH_ENABLED" envDefault:"false"`
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	// Kafka
	KafkaBrokers      string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled      bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaChangesTopic string `env:"KAFKA_CHANGES_TOPIC" envDefault:"lifestats.records.changed"`
	KafkaProfileTopic string `env:"KAFKA_PROFILE_TOPIC" envDefault:"lifestats.profile.recomputed"`
	KafkaGroupID      string `env:"KAFKA_GROUP_ID" envDefault:"lifestats-engine"`

	// Stats engine
	StatsDebounce       time.Duration `env:"STATS_DEBOUNCE" envDefault:"100ms"`
	LevelBase           int64         `env:"LEVEL_BASE" envDefault:"100"`
	LevelGrowthNum      int64         `env:"LEVEL_GROWTH_NUM" envDefault:"6"`
	LevelGrowthDen      int64         `env:"LEVEL_GROWTH_DEN" envDefault:"5"`
	LevelMax            int64         `env:"LEVEL_MAX" envDefault:"100"`
	WealthMinorPerMajor int64         `env:"WEALTH_MINOR_PER_MAJOR" envDefault:"100"`

	// Rate limit for record writes, per client per minute
	WriteRateLimit int           `env:"WRITE_RATE_LIMIT" envDefault:"120"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"10m"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for settings the service cannot run with.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the JWT checks (local dev only).
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.StoreBackend)
	}
	if err := c.Curve().Validate(); err != nil {
		return fmt.Errorf("LEVEL_* settings: %w", err)
	}
	if c.WealthMinorPerMajor <= 0 {
		return fmt.Errorf("WEALTH_MINOR_PER_MAJOR must be positive, got %d", c.WealthMinorPerMajor)
	}
	if c.StatsDebounce <= 0 {
		return fmt.Errorf("STATS_DEBOUNCE must be positive, got %s", c.StatsDebounce)
	}
	if c.WriteRateLimit <= 0 {
		return fmt.Errorf("WRITE_RATE_LIMIT must be positive, got %d", c.WriteRateLimit)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive, got %s", c.IdempotencyTTL)
	}

	if !c.AuthEnabled || c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == insecureJWTSecret {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	return nil
}

// Curve returns the configured experience curve.
func (c *Config) Curve() leveling.Curve {
	return leveling.Curve{
		Base:      c.LevelBase,
		GrowthNum: c.LevelGrowthNum,
		GrowthDen: c.LevelGrowthDen,
		MaxLevel:  c.LevelMax,
	}
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
