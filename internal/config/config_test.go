package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		CacheMode:        "readwrite",
		CacheBackend:     "fs",
		DatabasePassword: "secret",
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	bad := validConfig()
	bad.CacheMode = "write-through"
	assert.Error(t, bad.Validate())

	bad = validConfig()
	bad.CacheBackend = "memcached"
	assert.Error(t, bad.Validate())

	bad = validConfig()
	bad.DatabasePassword = ""
	assert.Error(t, bad.Validate())
}

func TestDateOverrideMap(t *testing.T) {
	cfg := validConfig()
	cfg.DateOverrides = "628=2025-03-09; 627=2025-01-12"

	overrides, err := cfg.DateOverrideMap()
	require.NoError(t, err)
	require.Len(t, overrides, 2)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), overrides[628])
	assert.Equal(t, time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC), overrides[627])
}

func TestDateOverrideMap_Empty(t *testing.T) {
	overrides, err := validConfig().DateOverrideMap()
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestDateOverrideMap_Malformed(t *testing.T) {
	for _, raw := range []string{"628", "x=2025-03-09", "628=March 9"} {
		cfg := validConfig()
		cfg.DateOverrides = raw
		_, err := cfg.DateOverrideMap()
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}
