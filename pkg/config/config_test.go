package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.SunatEnvDev, cfg.SUNAT.Env)
	assert.True(t, cfg.SUNAT.IsDev())
	assert.False(t, cfg.SUNAT.AllowInsecureSimulation)
	assert.Equal(t, 30*time.Second, cfg.SUNAT.Timeout())
	assert.Equal(t, "PEN", cfg.SUNAT.DefaultCurrency)
	assert.NotEmpty(t, cfg.SUNAT.CertDirs)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, 100, cfg.Worker.QueueSize)
	assert.Equal(t, 60*time.Second, cfg.Worker.LockTTL())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Storage.Enabled())
	assert.EqualValues(t, 10, cfg.DB.MaxConns)
	assert.EqualValues(t, 1, cfg.DB.MinConns)
}

func TestLoad_SunatDesdeEnv(t *testing.T) {
	t.Setenv("SUNAT_ENV", "BETA")
	t.Setenv("SUNAT_TIMEOUT_SECONDS", "10")
	t.Setenv("SUNAT_ALLOW_INSECURE_SIMULATION", "true")
	t.Setenv("SUNAT_CERT_DIRS", "/etc/certs, ./certs ,")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("S3_BUCKET", "cpe-archivo")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.SunatEnvBeta, cfg.SUNAT.Env)
	assert.Equal(t, 10*time.Second, cfg.SUNAT.Timeout())
	assert.True(t, cfg.SUNAT.AllowInsecureSimulation)
	assert.Equal(t, []string{"/etc/certs", "./certs"}, cfg.SUNAT.CertDirs)
	assert.Contains(t, cfg.SUNAT.Endpoint(), "beta")
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Storage.Enabled())
}

func TestLoad_EndpointExplicito(t *testing.T) {
	t.Setenv("SUNAT_ENV", "prod")
	t.Setenv("SUNAT_ENDPOINT_URL", "https://proxy.local/cpe")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.local/cpe", cfg.SUNAT.Endpoint())
}

func TestLoad_InsecureEnProdFalla(t *testing.T) {
	t.Setenv("SUNAT_ENV", "prod")
	t.Setenv("SUNAT_ALLOW_INSECURE_SIMULATION", "true")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_EnvInvalido(t *testing.T) {
	t.Setenv("SUNAT_ENV", "staging")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_PoolInvalido(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "2")
	t.Setenv("DB_MIN_CONNS", "5")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "cpe", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/cpe?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
