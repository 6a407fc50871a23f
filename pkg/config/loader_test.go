package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shakvilla/saas-starter-template-shared-schema/pkg/config"
)

type testConfig struct {
	Name    string `env:"CONFIG_TEST_NAME" envDefault:"starter"`
	Port    int    `env:"CONFIG_TEST_PORT" envDefault:"8080"`
	Require string `env:"CONFIG_TEST_REQUIRED,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_REQUIRED", "present")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "starter", cfg.Name)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "present", cfg.Require)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_NAME", "custom")
		t.Setenv("CONFIG_TEST_PORT", "9090")
		t.Setenv("CONFIG_TEST_REQUIRED", "present")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "custom", cfg.Name)
		assert.Equal(t, 9090, cfg.Port)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		var cfg testConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}
