// Package config assembles the service configuration from defaults,
// command-line flags and environment variables (in that order of
// precedence), then validates the result.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	RunAddr                    string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel                   string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN                string        `env:"DATABASE_DSN"`
	DBConnectionTimeout        time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	MigrationsDir              string        `env:"MIGRATIONS_DIR" validate:"filepath"`
	AuthCookieName             string        `env:"AUTH_COOKIE_NAME" validate:"required"`
	AuthCookieSigningSecretKey string        `env:"AUTH_COOKIE_SIGNING_SECRET_KEY" validate:"required"`
	SessionTTL                 time.Duration `env:"SESSION_TTL"`
	RedisAddr                  string        `env:"REDIS_ADDR"`
	RedisPassword              string        `env:"REDIS_PASSWORD"`
	RedisDB                    int           `env:"REDIS_DB"`
	ListStoragePath            string        `env:"LIST_STORAGE_PATH" validate:"filepath"`
	DefaultListName            string        `env:"DEFAULT_LIST_NAME"`
	ClassifierURL              string        `env:"CLASSIFIER_URL"`
	ClassifierTimeout          time.Duration `env:"CLASSIFIER_TIMEOUT"`
	SuggesterQueueCapacity     int           `env:"SUGGESTER_QUEUE_CAPACITY"`
	SuggesterFlushInterval     time.Duration `env:"SUGGESTER_FLUSH_INTERVAL"`
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("filepath", validateFilePath); err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes config assembly.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips flag.Parse(), which tests need because the
// testing package owns the flag set.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration: defaults, then flags, then environment
// variables, then validation.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	cfg := &Config{
		RunAddr:                    ":8080",
		LogLevel:                   "info",
		DatabaseDSN:                "",
		DBConnectionTimeout:        10 * time.Second,
		MigrationsDir:              "cmd/ptracker/migrations",
		AuthCookieName:             "ptracker_session",
		AuthCookieSigningSecretKey: "c3VwZXJzZWNyZXQ=",
		SessionTTL:                 30 * 24 * time.Hour,
		RedisAddr:                  "",
		RedisPassword:              "",
		RedisDB:                    0,
		ListStoragePath:            "lists.json",
		DefaultListName:            "Shopping list",
		ClassifierURL:              "",
		ClassifierTimeout:          10 * time.Second,
		SuggesterQueueCapacity:     64,
		SuggesterFlushInterval:     5 * time.Second,
	}

	if !options.disableFlagsParsing {
		flag.StringVar(&cfg.RunAddr, "a", cfg.RunAddr, "address and port to run server")
		flag.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "logger level")
		flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "PostgreSQL connection string")
		flag.StringVar(&cfg.MigrationsDir, "m", cfg.MigrationsDir, "directory with goose migrations")
		flag.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "Redis address for the list store")
		flag.StringVar(&cfg.ListStoragePath, "f", cfg.ListStoragePath, "JSON file name with the fallback list store")
		flag.StringVar(&cfg.ClassifierURL, "c", cfg.ClassifierURL, "base URL of the image classifier service")
		flag.Parse()
	}

	valuesFromEnv := &Config{}
	if err := env.Parse(valuesFromEnv); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg, valuesFromEnv)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg, fromEnv *Config) {
	if fromEnv.RunAddr != "" {
		cfg.RunAddr = fromEnv.RunAddr
	}
	if fromEnv.LogLevel != "" {
		cfg.LogLevel = fromEnv.LogLevel
	}
	if fromEnv.DatabaseDSN != "" {
		cfg.DatabaseDSN = fromEnv.DatabaseDSN
	}
	if fromEnv.DBConnectionTimeout != 0 {
		cfg.DBConnectionTimeout = fromEnv.DBConnectionTimeout
	}
	if fromEnv.MigrationsDir != "" {
		cfg.MigrationsDir = fromEnv.MigrationsDir
	}
	if fromEnv.AuthCookieName != "" {
		cfg.AuthCookieName = fromEnv.AuthCookieName
	}
	if fromEnv.AuthCookieSigningSecretKey != "" {
		cfg.AuthCookieSigningSecretKey = fromEnv.AuthCookieSigningSecretKey
	}
	if fromEnv.SessionTTL != 0 {
		cfg.SessionTTL = fromEnv.SessionTTL
	}
	if fromEnv.RedisAddr != "" {
		cfg.RedisAddr = fromEnv.RedisAddr
	}
	if fromEnv.RedisPassword != "" {
		cfg.RedisPassword = fromEnv.RedisPassword
	}
	if fromEnv.RedisDB != 0 {
		cfg.RedisDB = fromEnv.RedisDB
	}
	if fromEnv.ListStoragePath != "" {
		cfg.ListStoragePath = fromEnv.ListStoragePath
	}
	if fromEnv.DefaultListName != "" {
		cfg.DefaultListName = fromEnv.DefaultListName
	}
	if fromEnv.ClassifierURL != "" {
		cfg.ClassifierURL = fromEnv.ClassifierURL
	}
	if fromEnv.ClassifierTimeout != 0 {
		cfg.ClassifierTimeout = fromEnv.ClassifierTimeout
	}
	if fromEnv.SuggesterQueueCapacity != 0 {
		cfg.SuggesterQueueCapacity = fromEnv.SuggesterQueueCapacity
	}
	if fromEnv.SuggesterFlushInterval != 0 {
		cfg.SuggesterFlushInterval = fromEnv.SuggesterFlushInterval
	}
}
