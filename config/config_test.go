package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"MINA_SWAP_BASE_URL",
		"MINA_SWAP_WALLET_ADDRESS",
		"MINA_SWAP_LOG_LEVEL",
		"MINA_SWAP_LOG_FORMAT",
		"MINA_SWAP_PLAN_STORAGE_PATH",
		"MINA_SWAP_CHECK_INTERVAL",
		"MINA_SWAP_DEVNET_ADDR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, DefaultCheckInterval, cfg.CheckInterval)
	assert.Equal(t, DefaultDevnetAddr, cfg.DevnetAddr)
	assert.Empty(t, cfg.WalletAddress)
	assert.Empty(t, cfg.PlanStoragePath)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("MINA_SWAP_BASE_URL", "http://localhost:8545")
	t.Setenv("MINA_SWAP_WALLET_ADDRESS", "addr_test1qz")
	t.Setenv("MINA_SWAP_CHECK_INTERVAL", "45s")
	t.Setenv("MINA_SWAP_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.BaseURL)
	assert.Equal(t, "addr_test1qz", cfg.WalletAddress)
	assert.Equal(t, 45*time.Second, cfg.CheckInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "mina-swap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"base_url: https://amm.example.org/\n"+
			"wallet_address: addr_file\n"+
			"check_interval: 1m\n"+
			"log_format: json\n"), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://amm.example.org/", cfg.BaseURL)
	assert.Equal(t, "addr_file", cfg.WalletAddress)
	assert.Equal(t, time.Minute, cfg.CheckInterval)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFileMissing(t *testing.T) {
	isolate(t)

	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid https", Config{BaseURL: "https://amm.example.com", CheckInterval: time.Second}, false},
		{"valid http with port", Config{BaseURL: "http://127.0.0.1:8545", CheckInterval: time.Second}, false},
		{"relative url", Config{BaseURL: "/quote", CheckInterval: time.Second}, true},
		{"unsupported scheme", Config{BaseURL: "ftp://amm.example.com", CheckInterval: time.Second}, true},
		{"zero interval", Config{BaseURL: "https://amm.example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
