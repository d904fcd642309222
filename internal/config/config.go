package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	MilestonesNotExceed     = "not_exceed"
	MilestonesInformational = "informational"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DBDSN       string `env:"DB_DSN"`

	JWTSecret     string `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiresMin int    `env:"JWT_EXPIRES_MIN" envDefault:"10080"`

	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AMQPURL string `env:"AMQP_URL"`

	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"http://127.0.0.1:3000, http://localhost:3000"`

	ListTimeout      time.Duration `env:"LIST_TIMEOUT" envDefault:"3s"`
	ListMaxLimit     int           `env:"LIST_MAX_LIMIT" envDefault:"100"`
	ListDefaultLimit int           `env:"LIST_DEFAULT_LIMIT" envDefault:"10"`

	ViewDedupeTTL time.Duration `env:"VIEW_DEDUPE_TTL" envDefault:"1h"`

	MilestonePolicy string `env:"MILESTONE_POLICY" envDefault:"not_exceed"`
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DBDSN == "" {
			errs = append(errs, errors.New("DB_DSN is required for the postgres store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not postgres or memory", c.StoreDriver))
	}
	switch c.MilestonePolicy {
	case MilestonesNotExceed, MilestonesInformational:
	default:
		errs = append(errs, fmt.Errorf("MILESTONE_POLICY %q is not not_exceed or informational", c.MilestonePolicy))
	}
	if c.ListMaxLimit <= 0 {
		errs = append(errs, errors.New("LIST_MAX_LIMIT must be positive"))
	}
	if c.ListDefaultLimit <= 0 || c.ListDefaultLimit > c.ListMaxLimit {
		errs = append(errs, errors.New("LIST_DEFAULT_LIMIT must be between 1 and LIST_MAX_LIMIT"))
	}
	if c.ListTimeout <= 0 {
		errs = append(errs, errors.New("LIST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// Auth is the subset of Config needed to mint tokens.
type Auth struct {
	JWTSecret     string `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiresMin int    `env:"JWT_EXPIRES_MIN" envDefault:"10080"`
}

// LoadAuth reads .env and only the JWT settings, so tooling does not need a database.
func LoadAuth() (Auth, error) {
	_ = godotenv.Load()
	var a Auth
	if err := env.Parse(&a); err != nil {
		return Auth{}, fmt.Errorf("parse env: %w", err)
	}
	return a, nil
}

func (c Config) Production() bool { return c.AppEnv == "production" }

// AllowedOrigins returns CORSOrigins in the comma-separated form cors.Config expects.
func (c Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
