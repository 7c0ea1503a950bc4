package resilience

import (
	"time"

	"github.com/sells-group/grounding-cli/internal/config"
)

// PolicyFrom converts retry config values to a Policy. Zero values keep the
// defaults.
func PolicyFrom(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoffMs > 0 {
		p.InitialBackoff = time.Duration(cfg.InitialBackoffMs) * time.Millisecond
	}
	if cfg.MaxBackoffMs > 0 {
		p.MaxBackoff = time.Duration(cfg.MaxBackoffMs) * time.Millisecond
	}
	return p
}

// BreakerFrom converts breaker config values to a BreakerConfig.
func BreakerFrom(cfg config.BreakerConfig) BreakerConfig {
	b := DefaultBreakerConfig()
	if cfg.FailureThreshold > 0 {
		b.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeoutSecs > 0 {
		b.ResetTimeout = time.Duration(cfg.ResetTimeoutSecs) * time.Second
	}
	return b
}
