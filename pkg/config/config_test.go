package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/retail-ledger/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreMemory, cfg.Ledger.StoreDriver)
	assert.Equal(t, 5, cfg.Ledger.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Ledger.ReadBackoff())
	assert.Equal(t, "ledger:mutations", cfg.Redis.EventsChannel)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "retail-ledger", cfg.JWT.Issuer)
}

func TestLoad_LeeVariablesDeEntorno(t *testing.T) {
	t.Setenv("LEDGER_STORE", "Postgres")
	t.Setenv("LEDGER_MAX_ATTEMPTS", "8")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_LOCK_TTL_SECONDS", "3")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("JWT_ISSUER", "auth.retail")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StorePostgres, cfg.Ledger.StoreDriver)
	assert.Equal(t, 8, cfg.Ledger.MaxAttempts)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 3*time.Second, cfg.Redis.LockTTL())
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "auth.retail", cfg.JWT.Issuer)
}

func TestLoad_DriverInvalido(t *testing.T) {
	t.Setenv("LEDGER_STORE", "cassandra")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "ledger", Password: "p@ss:w/rd", DBName: "retail_ledger", SSLMode: "disable"}
	assert.Equal(t, "postgres://ledger:p%40ss%3Aw%2Frd@db:5432/retail_ledger?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
