package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "DB_DRIVER", "JWT_SECRET", "STORAGE_BACKEND", "KAFKA_BROKERS", "CORS_ORIGINS", "SWEEP_GRACE"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()

	assert.Equal(t, 5000, cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.True(t, cfg.InsecureSecret())
	assert.Nil(t, cfg.KafkaBrokers)
	assert.Len(t, cfg.CORSOrigins, 3)
	assert.Equal(t, time.Hour, cfg.SweepGrace)
	assert.Equal(t, "admin", cfg.AdminUsername)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("AUTH_RATE_LIMIT", "2.5")
	t.Setenv("SWEEP_GRACE", "15m")

	cfg := FromEnv()

	assert.Equal(t, 8081, cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.False(t, cfg.InsecureSecret())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2.5, cfg.AuthRateLimit)
	assert.Equal(t, 15*time.Minute, cfg.SweepGrace)
}

func TestEnvIntDefault_InvalidFallsBack(t *testing.T) {
	t.Setenv("MYLIB_TEST_INT", "abc")
	assert.Equal(t, 7, EnvIntDefault("MYLIB_TEST_INT", 7))
}
