package setup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/whalewatch/config"
)

func TestValidators(t *testing.T) {
	assert.NoError(t, validateMinValue("2500000"))
	assert.Error(t, validateMinValue("-1"))
	assert.Error(t, validateMinValue("lots"))

	assert.NoError(t, validateConcurrency("8"))
	assert.Error(t, validateConcurrency("0"))
	assert.Error(t, validateConcurrency("100"))

	assert.NoError(t, validateRate("2.5"))
	assert.Error(t, validateRate("0"))

	assert.NoError(t, validateInterval("90s"))
	assert.Error(t, validateInterval("soon"))
	assert.Error(t, validateInterval("-1m"))

	assert.Error(t, validateNonEmpty(""))
}

func TestAnswersWriteLoadableConfig(t *testing.T) {
	a := defaultAnswers()
	a.minValue = "5000000"
	a.interval = "2m"
	a.addr = "127.0.0.1:9090"

	tmp, err := a.toConfig()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, write(path, tmp))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var back config.ConfigTmp
	require.NoError(t, yaml.Unmarshal(raw, &back))
	assert.Equal(t, "5000000", back.MinValue)
	assert.Equal(t, 2*time.Minute, back.ScanInterval)

	cfg, _, err := config.Get([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "5000000", cfg.MinValue.String())
	assert.Equal(t, 2*time.Minute, cfg.ScanInterval)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
}

func TestAnswersRejectInvalid(t *testing.T) {
	a := defaultAnswers()
	a.concurrency = "zero"
	_, err := a.toConfig()
	assert.Error(t, err)
}
