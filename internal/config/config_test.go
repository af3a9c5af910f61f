package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Audit.Backend)
	assert.Equal(t, "30m", cfg.Audit.Step)
	assert.Equal(t, 4, cfg.Audit.Workers)
	assert.Equal(t, 8, cfg.Collector.Workers)
	assert.Equal(t, "0.0.0.0:8090", cfg.Registry.BindAddr)
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("AUDIT_WORKERS", "16")
	t.Setenv("AUDIT_STORAGE_BACKEND", "postgres")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Audit.Workers)
	assert.Equal(t, "postgres", cfg.Audit.Backend)
}

func TestLoadFileJSONOverridesEnv(t *testing.T) {
	t.Setenv("AUDIT_STEP", "15m")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"audit":{"step":"1h","workers":2}}`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1h", cfg.Audit.Step)
	assert.Equal(t, 2, cfg.Audit.Workers)
}

func TestDatabaseDSN(t *testing.T) {
	dsn := DatabaseConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", DBName: "ruleaudit", SSLMode: "disable",
	}.DSN()
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=ruleaudit sslmode=disable", dsn)
}
