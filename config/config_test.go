package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYaml(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestGetDefaults(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	t.Setenv(EnvPrivateKey, "")

	cfg, opts, err := Get(nil)
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.False(t, opts.Setup)
	assert.Equal(t, "2500000", cfg.MinValue.String())
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.ScanInterval)
}

func TestGetYamlThenFlags(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	path := writeYaml(t, `
min_value: "1000000"
concurrency: 4
rate_per_second: "2.5"
scan_interval: 1m
data_dir: /tmp/from-yaml
`)

	cfg, _, err := Get([]string{"--config", path, "--concurrency", "2"})
	require.NoError(t, err)

	assert.Equal(t, "1000000", cfg.MinValue.String())
	assert.Equal(t, 2, cfg.Concurrency, "explicit flag wins over yaml")
	assert.Equal(t, 2.5, cfg.RatePerSecond)
	assert.Equal(t, time.Minute, cfg.ScanInterval)
	assert.Equal(t, "/tmp/from-yaml", cfg.DataDir)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
}

func TestGetUnsetFlagsDoNotOverrideYaml(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	path := writeYaml(t, "addr: \"127.0.0.1:9999\"\n")

	cfg, _, err := Get([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
}

func TestGetEnvOverrides(t *testing.T) {
	t.Setenv(EnvDataDir, "/var/lib/whalewatch")
	t.Setenv(EnvPrivateKey, "0xabc")

	cfg, _, err := Get([]string{"--data-dir", "/ignored"})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/whalewatch", cfg.DataDir)
	assert.Equal(t, "0xabc", cfg.PrivateKey)
}

func TestGetRejectsBadInput(t *testing.T) {
	t.Setenv(EnvDataDir, "")

	_, _, err := Get([]string{"--min-value", "many"})
	assert.Error(t, err)

	_, _, err = Get([]string{"--concurrency", "0"})
	assert.Error(t, err)

	_, _, err = Get([]string{"--config", writeYaml(t, "min_value: abc\n")})
	assert.Error(t, err)

	_, _, err = Get([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestOnceAllowsZeroInterval(t *testing.T) {
	t.Setenv(EnvDataDir, "")

	_, _, err := Get([]string{"--interval", "0s"})
	assert.Error(t, err)

	cfg, _, err := Get([]string{"--interval", "0s", "--once"})
	require.NoError(t, err)
	assert.True(t, cfg.Once)
}

func TestLoadEnvIgnoresMissingFile(t *testing.T) {
	assert.NoError(t, LoadEnv(filepath.Join(t.TempDir(), ".env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WHALEWATCH_TEST_VALUE=42\n"), 0o644))
	t.Setenv("WHALEWATCH_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("WHALEWATCH_TEST_VALUE"))
	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "42", os.Getenv("WHALEWATCH_TEST_VALUE"))
}

func TestToTmpRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 3
	back, err := fromTmp(cfg.ToTmp())
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
