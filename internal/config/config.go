package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthModeDevelopment = "development"
	AuthModeJWT         = "jwt"

	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	AuthMode            string        `mapstructure:"AUTH_MODE"`
	AuthSigningKey      string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer          string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience        string        `mapstructure:"AUTH_AUDIENCE"`
	StoreBackend        string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	DBConnectAttempts   int           `mapstructure:"DB_CONNECT_ATTEMPTS"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	RedisSnapshotKey    string        `mapstructure:"REDIS_SNAPSHOT_KEY"`
	KafkaBrokers        []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic          string        `mapstructure:"KAFKA_TOPIC"`
	WaitRefreshInterval time.Duration `mapstructure:"WAIT_REFRESH_INTERVAL"`
	DepartmentCapacity  string        `mapstructure:"DEPARTMENT_CAPACITY"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS        float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int           `mapstructure:"RATE_LIMIT_BURST"`
	SeedDemo            bool          `mapstructure:"SEED_DEMO"`
}

var keys = []string{
	"PORT", "ENV", "AUTH_MODE", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"STORE_BACKEND", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_CONNECT_ATTEMPTS",
	"REDIS_URL", "REDIS_SNAPSHOT_KEY", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"WAIT_REFRESH_INTERVAL", "DEPARTMENT_CAPACITY", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "SEED_DEMO",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred from ENV
	v.SetDefault("AUTH_ISSUER", "carequeue")
	v.SetDefault("STORE_BACKEND", StoreMemory)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_CONNECT_ATTEMPTS", 5)
	v.SetDefault("REDIS_SNAPSHOT_KEY", "carequeue:visits")
	v.SetDefault("KAFKA_TOPIC", "carequeue.queue-events")
	v.SetDefault("WAIT_REFRESH_INTERVAL", "1m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("SEED_DEMO", false)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Comma-separated env values arrive as a single element.
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE if set; otherwise development in the
// development environment and jwt everywhere else.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthModeDevelopment
	}
	return AuthModeJWT
}

// KafkaEnabled reports whether queue events should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Capacities parses DEPARTMENT_CAPACITY ("ICU=20,Emergency=30").
func (c *Config) Capacities() (map[string]int, error) {
	out := make(map[string]int)
	for _, entry := range splitList(c.DepartmentCapacity) {
		name, raw, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("DEPARTMENT_CAPACITY entry %q must be name=count", entry)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("DEPARTMENT_CAPACITY entry %q must have a positive count", entry)
		}
		out[name] = n
	}
	return out, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch mode := c.ResolvedAuthMode(); mode {
	case AuthModeDevelopment:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=development is not allowed with ENV=production")
		}
	case AuthModeJWT:
		if len(c.AuthSigningKey) < 32 {
			return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes when AUTH_MODE is %q", mode)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"jwt\", got %q", mode)
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND is redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be memory, postgres or redis, got %q", c.StoreBackend)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.WaitRefreshInterval < time.Second {
		return fmt.Errorf("WAIT_REFRESH_INTERVAL must be at least 1s, got %s", c.WaitRefreshInterval)
	}
	if c.KafkaEnabled() && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if _, err := c.Capacities(); err != nil {
		return err
	}
	return nil
}
