package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"file"}, cfg.Sources)
	assert.True(t, cfg.HasSource("file"))
	assert.False(t, cfg.HasSource("http"))
	assert.Equal(t, int64(1_000_000), cfg.SpreadGood)
	assert.Equal(t, int64(3_000_000), cfg.SpreadWarn)
	assert.Equal(t, 20, cfg.DefaultPageSize)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, "price_asc", cfg.DefaultSort)
	assert.True(t, cfg.RespectRobots)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "8080", cfg.HTTPPort)

	th := cfg.Thresholds()
	assert.Equal(t, int64(1_000_000), th.Good)
	assert.Equal(t, int64(3_000_000), th.Warn)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CARIZON_SPREAD_GOOD", "500000")
	t.Setenv("CARIZON_SPREAD_WARN", "2000000")
	t.Setenv("CARIZON_PAGE_SIZE", "10")
	t.Setenv("CARIZON_SOURCE", "file,http")
	t.Setenv("CARIZON_API_URL", "https://api.carizon.example")
	t.Setenv("CARIZON_HTTP_TIMEOUT", "5s")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), cfg.SpreadGood)
	assert.Equal(t, int64(2_000_000), cfg.SpreadWarn)
	assert.Equal(t, 10, cfg.DefaultPageSize)
	assert.Equal(t, []string{"file", "http"}, cfg.Sources)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "9090", cfg.HTTPPort)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"warn below good", map[string]string{"CARIZON_SPREAD_GOOD": "3000000", "CARIZON_SPREAD_WARN": "1000000"}},
		{"negative good", map[string]string{"CARIZON_SPREAD_GOOD": "-1"}},
		{"page size above max", map[string]string{"CARIZON_PAGE_SIZE": "500"}},
		{"zero page size", map[string]string{"CARIZON_PAGE_SIZE": "0"}},
		{"unknown sort", map[string]string{"CARIZON_SORT": "cheapest"}},
		{"unknown source", map[string]string{"CARIZON_SOURCE": "redis"}},
		{"http without url", map[string]string{"CARIZON_SOURCE": "http"}},
		{"postgres without dsn", map[string]string{"CARIZON_SOURCE": "postgres"}},
		{"pages without file", map[string]string{"CARIZON_SOURCE": "file,pages"}},
		{"bad api url", map[string]string{"CARIZON_SOURCE": "http", "CARIZON_API_URL": "not a url"}},
		{"unknown delay profile", map[string]string{"CARIZON_DELAY_PROFILE": "aggressive"}},
		{"not a number", map[string]string{"CARIZON_MAX_CONCURRENT": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
