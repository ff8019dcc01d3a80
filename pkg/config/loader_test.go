package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/saasbilling/pkg/config"
)

type sampleConfig struct {
	Name  string `env:"CFG_TEST_NAME" envDefault:"billing"`
	Limit int    `env:"CFG_TEST_LIMIT" envDefault:"10"`
}

type requiredConfig struct {
	Secret string `env:"CFG_TEST_REQUIRED_SECRET,required"`
}

type fileConfig struct {
	Value string `env:"CFG_TEST_FILE_VALUE"`
}

func TestLoad(t *testing.T) {
	config.Reset()
	t.Setenv("CFG_TEST_LIMIT", "25")

	var cfg sampleConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "billing", cfg.Name)
	assert.Equal(t, 25, cfg.Limit)

	t.Run("cached per type", func(t *testing.T) {
		t.Setenv("CFG_TEST_LIMIT", "99")
		var again sampleConfig
		require.NoError(t, config.Load(&again))
		assert.Equal(t, 25, again.Limit)
	})

	t.Run("reset forces reparse", func(t *testing.T) {
		t.Setenv("CFG_TEST_LIMIT", "99")
		config.Reset()
		var again sampleConfig
		require.NoError(t, config.Load(&again))
		assert.Equal(t, 99, again.Limit)
	})
}

func TestLoad_Errors(t *testing.T) {
	config.Reset()

	require.ErrorIs(t, config.Load[sampleConfig](nil), config.ErrNilPointer)

	var cfg requiredConfig
	require.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

func TestLoadEnv(t *testing.T) {
	config.Reset()

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFG_TEST_FILE_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CFG_TEST_FILE_VALUE") })

	require.NoError(t, config.LoadEnv(path))

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from-file", cfg.Value)

	require.ErrorIs(t, config.LoadEnv(filepath.Join(t.TempDir(), "missing.env")), config.ErrLoadingEnv)
}
