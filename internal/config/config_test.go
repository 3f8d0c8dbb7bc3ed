package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "ptracker_session", cfg.AuthCookieName)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "lists.json", cfg.ListStoragePath)
	assert.Equal(t, "Shopping list", cfg.DefaultListName)
	assert.Equal(t, 10*time.Second, cfg.ClassifierTimeout)
	assert.Equal(t, 64, cfg.SuggesterQueueCapacity)
	assert.Equal(t, 5*time.Second, cfg.SuggesterFlushInterval)
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", "localhost:3000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_DSN", "host=localhost dbname=ptracker")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SUGGESTER_QUEUE_CAPACITY", "128")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, "localhost:3000", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "host=localhost dbname=ptracker", cfg.DatabaseDSN)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 128, cfg.SuggesterQueueCapacity)
}

func TestNewRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}

func TestNewRejectsInvalidRunAddr(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", "not a hostport")

	_, err := New(WithDisableFlagsParsing(true))
	assert.Error(t, err)
}
