package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = ":9090"
	cfg.Scheduler.Interval = 15 * time.Minute
	cfg.PettyCash.PettyCashCode = "1012"

	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", got.Server.Addr)
	assert.Equal(t, 15*time.Minute, got.Scheduler.Interval)
	assert.Equal(t, "1012", got.PettyCash.PettyCashCode)
	assert.Equal(t, cfg.Server.CORSOrigins, got.Server.CORSOrigins)
	assert.Equal(t, cfg.Ledger.QueryTimeout, got.Ledger.QueryTimeout)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "./ledger.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10*time.Second, cfg.Ledger.QueryTimeout)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "1010", cfg.PettyCash.PettyCashCode)
	assert.Equal(t, "1000", cfg.PettyCash.BankCode)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: /var/lib/ledger.db\nledger:\n  query_timeout: 3s\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ledger.db", cfg.Database.Path)
	assert.Equal(t, 3*time.Second, cfg.Ledger.QueryTimeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  format: xml\npetty_cash:\n  bank_code: \"4000\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
	assert.Contains(t, err.Error(), "petty_cash.bank_code")
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "query_timeout: 10s")
	assert.Contains(t, contents, "petty_cash_code: \"1010\"")
}
