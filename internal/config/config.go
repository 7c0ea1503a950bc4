package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Resolver  ResolverConfig  `yaml:"resolver" mapstructure:"resolver"`
	Throttle  ThrottleConfig  `yaml:"throttle" mapstructure:"throttle"`
	Format    FormatConfig    `yaml:"format" mapstructure:"format"`
	Grounding GroundingConfig `yaml:"grounding" mapstructure:"grounding"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ResolverConfig configures redirect resolution.
type ResolverConfig struct {
	MaxHops     int           `yaml:"max_hops" mapstructure:"max_hops"`
	TimeoutSecs int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerHost float64       `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	Retry       RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Breaker     BreakerConfig `yaml:"breaker" mapstructure:"breaker"`
}

// RetryConfig configures per-hop retries of transient failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// BreakerConfig configures the per-host circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ThrottleConfig bounds concurrent resolutions.
type ThrottleConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MinSpacingMs  int `yaml:"min_spacing_ms" mapstructure:"min_spacing_ms"`
	DeadlineSecs  int `yaml:"deadline_secs" mapstructure:"deadline_secs"`
}

// FormatConfig controls inline markers and the reference list.
type FormatConfig struct {
	ReferenceStyle string `yaml:"reference_style" mapstructure:"reference_style"`
	InlineStyle    string `yaml:"inline_style" mapstructure:"inline_style"`
	Language       string `yaml:"language" mapstructure:"language"`
	Heading        string `yaml:"heading" mapstructure:"heading"`
	DefaultTitle   string `yaml:"default_title" mapstructure:"default_title"`
	OffsetUnit     string `yaml:"offset_unit" mapstructure:"offset_unit"`
}

// GroundingConfig configures grounding quality checks.
type GroundingConfig struct {
	ScoreThreshold float64 `yaml:"score_threshold" mapstructure:"score_threshold"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GROUNDING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("resolver.max_hops", 20)
	v.SetDefault("resolver.timeout_secs", 10)
	v.SetDefault("resolver.user_agent", "grounding-cli/1.0")
	v.SetDefault("resolver.rate_per_host", 20)
	v.SetDefault("resolver.retry.max_attempts", 2)
	v.SetDefault("resolver.retry.initial_backoff_ms", 200)
	v.SetDefault("resolver.retry.max_backoff_ms", 2000)
	v.SetDefault("resolver.breaker.failure_threshold", 5)
	v.SetDefault("resolver.breaker.reset_timeout_secs", 30)
	v.SetDefault("throttle.max_concurrent", 10)
	v.SetDefault("throttle.min_spacing_ms", 100)
	v.SetDefault("throttle.deadline_secs", 0)
	v.SetDefault("format.reference_style", "numbered")
	v.SetDefault("format.inline_style", "link")
	v.SetDefault("format.language", "ja")
	v.SetDefault("format.offset_unit", "rune")
	v.SetDefault("grounding.score_threshold", 0.5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks value ranges and enum fields. Every problem found is
// reported in a single error.
func (c *Config) Validate() error {
	var problems []string

	if c.Resolver.MaxHops <= 0 {
		problems = append(problems, "resolver.max_hops must be positive")
	}
	if c.Throttle.MaxConcurrent <= 0 {
		problems = append(problems, "throttle.max_concurrent must be positive")
	}
	if c.Throttle.MinSpacingMs < 0 {
		problems = append(problems, "throttle.min_spacing_ms must not be negative")
	}
	switch c.Format.ReferenceStyle {
	case "numbered", "markdown":
	default:
		problems = append(problems, fmt.Sprintf("format.reference_style %q is not one of numbered, markdown", c.Format.ReferenceStyle))
	}
	switch c.Format.InlineStyle {
	case "link", "number":
	default:
		problems = append(problems, fmt.Sprintf("format.inline_style %q is not one of link, number", c.Format.InlineStyle))
	}
	switch c.Format.OffsetUnit {
	case "rune", "byte":
	default:
		problems = append(problems, fmt.Sprintf("format.offset_unit %q is not one of rune, byte", c.Format.OffsetUnit))
	}
	if c.Grounding.ScoreThreshold < 0 || c.Grounding.ScoreThreshold > 1 {
		problems = append(problems, "grounding.score_threshold must be within [0, 1]")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
