package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 20, cfg.Resolver.MaxHops)
	assert.Equal(t, 10, cfg.Resolver.TimeoutSecs)
	assert.Equal(t, "grounding-cli/1.0", cfg.Resolver.UserAgent)
	assert.InDelta(t, 20.0, cfg.Resolver.RatePerHost, 0.001)
	assert.Equal(t, 2, cfg.Resolver.Retry.MaxAttempts)
	assert.Equal(t, 200, cfg.Resolver.Retry.InitialBackoffMs)
	assert.Equal(t, 5, cfg.Resolver.Breaker.FailureThreshold)
	assert.Equal(t, 10, cfg.Throttle.MaxConcurrent)
	assert.Equal(t, 100, cfg.Throttle.MinSpacingMs)
	assert.Equal(t, 0, cfg.Throttle.DeadlineSecs)
	assert.Equal(t, "numbered", cfg.Format.ReferenceStyle)
	assert.Equal(t, "link", cfg.Format.InlineStyle)
	assert.Equal(t, "ja", cfg.Format.Language)
	assert.Equal(t, "rune", cfg.Format.OffsetUnit)
	assert.InDelta(t, 0.5, cfg.Grounding.ScoreThreshold, 0.001)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
  format: console
throttle:
  max_concurrent: 3
  min_spacing_ms: 0
format:
  reference_style: markdown
  language: en
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Throttle.MaxConcurrent)
	assert.Equal(t, 0, cfg.Throttle.MinSpacingMs)
	assert.Equal(t, "markdown", cfg.Format.ReferenceStyle)
	assert.Equal(t, "en", cfg.Format.Language)
	// Defaults still apply for unset values
	assert.Equal(t, 20, cfg.Resolver.MaxHops)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
format:
  inline_style: number
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("GROUNDING_FORMAT_INLINE_STYLE", "link")
	t.Setenv("GROUNDING_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "link", cfg.Format.InlineStyle)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("GROUNDING_RESOLVER_MAX_HOPS", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Resolver.MaxHops)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Resolver.MaxHops = 20
	cfg.Throttle.MaxConcurrent = 10
	cfg.Throttle.MinSpacingMs = 100
	cfg.Format.ReferenceStyle = "numbered"
	cfg.Format.InlineStyle = "link"
	cfg.Format.OffsetUnit = "rune"
	cfg.Grounding.ScoreThreshold = 0.5
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate())
}

func TestValidate_EnumFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Format.ReferenceStyle = "apa"
	cfg.Format.InlineStyle = "footnote"
	cfg.Format.OffsetUnit = "utf16"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `format.reference_style "apa"`)
	assert.Contains(t, err.Error(), `format.inline_style "footnote"`)
	assert.Contains(t, err.Error(), `format.offset_unit "utf16"`)
}

func TestValidate_Ranges(t *testing.T) {
	cfg := validDefaults()
	cfg.Resolver.MaxHops = 0
	cfg.Throttle.MaxConcurrent = 0
	cfg.Throttle.MinSpacingMs = -1
	cfg.Grounding.ScoreThreshold = 1.5
	cfg.Server.Port = 70000

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolver.max_hops must be positive")
	assert.Contains(t, err.Error(), "throttle.max_concurrent must be positive")
	assert.Contains(t, err.Error(), "throttle.min_spacing_ms must not be negative")
	assert.Contains(t, err.Error(), "grounding.score_threshold")
	assert.Contains(t, err.Error(), "server.port 70000 is out of range")
}
