package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type AppEnv string

const (
	ProductionEnv AppEnv = "production"
	DevelopEnv    AppEnv = "develop"
	LocalEnv      AppEnv = "local"
	TestEnv       AppEnv = "test"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type (
	Config struct {
		AppEnv      AppEnv `env:"APP_ENV" envDefault:"local"`
		LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
		StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

		HTTP     HTTP
		Postgres Postgres
		Redis    Redis
		Auth     Auth
		Notify   Notify
		Queue    Queue

		EncryptionKey string `env:"ENCRYPTION_KEY"`
	}

	HTTP struct {
		Port int `env:"HTTP_PORT" envDefault:"8080"`
	}

	Postgres struct {
		Host     string `env:"DB_HOST" envDefault:"localhost"`
		Port     int    `env:"DB_PORT" envDefault:"5432"`
		User     string `env:"DB_USER"`
		Password string `env:"DB_PASSWORD"`
		Name     string `env:"DB_NAME"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Auth struct {
		AccessSecret string `env:"JWT_ACCESS_SECRET"`
	}

	Notify struct {
		SmsAPIKey          string        `env:"SMS_API_KEY"`
		SmsBaseURL         string        `env:"SMS_BASE_URL" envDefault:"https://sms.iprogtech.com/api/v1"`
		SmsSenderName      string        `env:"SMS_SENDER_NAME" envDefault:"Elaiza G. Beauty"`
		BrevoAPIKey        string        `env:"BREVO_API_KEY"`
		BrevoBaseURL       string        `env:"BREVO_BASE_URL" envDefault:"https://api.brevo.com/v3"`
		EmailSenderName    string        `env:"EMAIL_SENDER_NAME" envDefault:"Elaiza G. Beauty Lounge"`
		EmailSenderAddress string        `env:"EMAIL_SENDER_ADDRESS" envDefault:"glowpointcapstone@gmail.com"`
		Timeout            time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"15s"`
	}

	Queue struct {
		PollInterval  time.Duration `env:"POLL_INTERVAL" envDefault:"10s"`
		AutoResetCron string        `env:"AUTO_RESET_CRON"`
	}
)

// Load reads the environment, pulling in a .env file first unless ENV_CHEK is set
// (containers pass the variables directly).
func Load() (*Config, error) {
	if os.Getenv("ENV_CHEK") == "" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "config: failed to read .env")
		}
	}

	cfg := &Config{}
	// env v3 does not descend into nested struct values, so every section is parsed on its own.
	sections := []interface{}{cfg, &cfg.HTTP, &cfg.Postgres, &cfg.Redis, &cfg.Auth, &cfg.Notify, &cfg.Queue}
	for _, section := range sections {
		if err := env.Parse(section); err != nil {
			return nil, errors.Wrap(err, "config: failed to parse environment")
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return errors.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Queue.PollInterval <= 0 {
		return errors.New("config: POLL_INTERVAL must be positive")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config: invalid LOG_LEVEL")
	}
	return nil
}

// Level returns the parsed log level; validate guarantees it parses.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Name)
}
