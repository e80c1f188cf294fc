package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/notify/pkg/config"
)

type testConfig struct {
	Name     string        `env:"TEST_CFG_NAME" envDefault:"fallback"`
	Count    int           `env:"TEST_CFG_COUNT" envDefault:"4"`
	Interval time.Duration `env:"TEST_CFG_INTERVAL" envDefault:"5s"`
	Required string        `env:"TEST_CFG_REQUIRED,required"`
}

func TestLoad(t *testing.T) {
	t.Run("reads environment variables", func(t *testing.T) {
		t.Setenv("TEST_CFG_NAME", "notify")
		t.Setenv("TEST_CFG_COUNT", "8")
		t.Setenv("TEST_CFG_INTERVAL", "250ms")
		t.Setenv("TEST_CFG_REQUIRED", "present")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "notify", cfg.Name)
		assert.Equal(t, 8, cfg.Count)
		assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("TEST_CFG_REQUIRED", "present")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "fallback", cfg.Name)
		assert.Equal(t, 4, cfg.Count)
		assert.Equal(t, 5*time.Second, cfg.Interval)
	})

	t.Run("missing required variable", func(t *testing.T) {
		var cfg testConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("unparsable value", func(t *testing.T) {
		t.Setenv("TEST_CFG_COUNT", "many")
		t.Setenv("TEST_CFG_REQUIRED", "present")

		var cfg testConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on failure", func(t *testing.T) {
		var cfg testConfig
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})

	t.Run("succeeds with full environment", func(t *testing.T) {
		t.Setenv("TEST_CFG_REQUIRED", "present")

		var cfg testConfig
		assert.NotPanics(t, func() { config.MustLoad(&cfg) })
	})
}
