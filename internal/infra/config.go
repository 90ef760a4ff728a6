package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
)

// Store drivers selectable with STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

const insecureJWTSecret = "change-me-in-production"

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Progress store
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// Postgres
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"mxshare"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"mxshare"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"mxshare"`
	PGMaxConns  int32  `env:"PG_MAX_CONNS" envDefault:"20"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	// Mongo
	MongoURI        string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase   string `env:"MONGO_DATABASE" envDefault:"mxshare"`
	MongoCollection string `env:"MONGO_COLLECTION" envDefault:"users"`

	// Redis
	RedisURL           string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisFanoutEnabled bool   `env:"REDIS_FANOUT_ENABLED" envDefault:"false"`
	RedisChannel       string `env:"REDIS_CHANNEL" envDefault:"mxshare:gamification:notify"`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTUserExpiry    time.Duration `env:"JWT_USER_EXPIRY" envDefault:"24h"`
	JWTServiceExpiry time.Duration `env:"JWT_SERVICE_EXPIRY" envDefault:"1h"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3100"`

	// Kafka
	KafkaBrokers       string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled       bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaActivityTopic string `env:"KAFKA_ACTIVITY_TOPIC" envDefault:"mxshare.activity"`
	KafkaConsumerGroup string `env:"KAFKA_CONSUMER_GROUP" envDefault:"mxshare-gamification"`

	// Outbox relay
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	// Gamification policy
	QuestCatalogPath   string `env:"QUEST_CATALOG_PATH"`
	DailyQuestCount    int    `env:"DAILY_QUEST_COUNT" envDefault:"3"`
	RerollBudget       int    `env:"REROLL_BUDGET" envDefault:"1"`
	QuestResetTimezone string `env:"QUEST_RESET_TIMEZONE" envDefault:"UTC"`

	// Guards
	RerollRateLimit     int `env:"REROLL_RATE_LIMIT" envDefault:"10"`
	IdempotencyCapacity int `env:"IDEMPOTENCY_CAPACITY" envDefault:"10000"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct. A .env file in
// the working directory is loaded first when present; real environment
// variables take precedence over it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	return cfg, nil
}

// Validate checks for inconsistent or insecure configuration.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass the secret checks (local dev only).
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, mongo, memory; got %q", c.StoreDriver)
	}
	if c.DailyQuestCount < 1 {
		return fmt.Errorf("DAILY_QUEST_COUNT must be at least 1, got %d", c.DailyQuestCount)
	}
	if c.RerollBudget < 0 {
		return fmt.Errorf("REROLL_BUDGET must not be negative, got %d", c.RerollBudget)
	}
	if _, err := time.LoadLocation(c.QuestResetTimezone); err != nil {
		return fmt.Errorf("QUEST_RESET_TIMEZONE: %w", err)
	}
	if c.OutboxBatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", c.OutboxBatchSize)
	}

	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == insecureJWTSecret {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	if c.StoreDriver == DriverMemory {
		return fmt.Errorf("STORE_DRIVER=memory loses progress on restart; set ALLOW_INSECURE_DEFAULTS=true to use it")
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// Brokers splits KAFKA_BROKERS into addresses.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Policy returns the progression policy knobs.
func (c *Config) Policy() domain.GamificationConfig {
	return domain.GamificationConfig{
		DailyQuestCount: c.DailyQuestCount,
		RerollBudget:    c.RerollBudget,
		ResetTimezone:   c.QuestResetTimezone,
	}
}

// ResetLocation returns the time zone quest days are measured in.
func (c *Config) ResetLocation() *time.Location {
	loc, err := time.LoadLocation(c.QuestResetTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
