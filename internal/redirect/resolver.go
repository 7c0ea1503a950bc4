// Package redirect follows HTTP redirect chains to the canonical location of
// a citation URL. Resolution is fail-open: any failure yields the input URL.
package redirect

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/grounding-cli/internal/config"
	"github.com/sells-group/grounding-cli/internal/metrics"
	"github.com/sells-group/grounding-cli/internal/resilience"
)

const (
	defaultMaxHops   = 20
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "grounding-cli/1.0"
)

// Resolver maps a URL to the terminal location of its redirect chain.
// Implementations never fail; on error they return the input.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) string
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, rawURL string) string

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, rawURL string) string {
	return f(ctx, rawURL)
}

// Option configures the HTTP resolver.
type Option func(*HTTPResolver)

// WithHTTPClient overrides the default http.Client. Its redirect policy is
// replaced so that redirects are never followed automatically.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *HTTPResolver) {
		c := *hc
		r.client = &c
	}
}

// WithMaxHops sets the number of redirects followed before giving up.
func WithMaxHops(n int) Option {
	return func(r *HTTPResolver) {
		if n > 0 {
			r.maxHops = n
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *HTTPResolver) {
		r.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every HEAD request.
func WithUserAgent(ua string) Option {
	return func(r *HTTPResolver) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithRetryPolicy sets the retry policy applied to each hop.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(r *HTTPResolver) {
		r.policy = p
	}
}

// WithBreakers sets the per-host circuit breakers.
func WithBreakers(hb *resilience.HostBreakers) Option {
	return func(r *HTTPResolver) {
		r.breakers = hb
	}
}

// WithRatePerHost limits requests per second to any single host. Zero or a
// negative value disables limiting.
func WithRatePerHost(rps float64) Option {
	return func(r *HTTPResolver) {
		r.ratePerHost = rps
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *HTTPResolver) {
		r.log = l
	}
}

// HTTPResolver resolves redirect chains with HEAD requests.
type HTTPResolver struct {
	client      *http.Client
	maxHops     int
	timeout     time.Duration
	userAgent   string
	policy      resilience.Policy
	breakers    *resilience.HostBreakers
	ratePerHost float64
	log         *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates an HTTPResolver.
func New(opts ...Option) *HTTPResolver {
	r := &HTTPResolver{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxHops:   defaultMaxHops,
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		policy:    resilience.DefaultPolicy(),
		breakers:  resilience.NewHostBreakers(resilience.DefaultBreakerConfig()),
		log:       zap.L(),
		limiters:  make(map[string]*rate.Limiter),
	}
	for _, o := range opts {
		o(r)
	}
	r.client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return r
}

// FromConfig builds an HTTPResolver from config values.
func FromConfig(cfg config.ResolverConfig, log *zap.Logger) *HTTPResolver {
	breakerCfg := resilience.BreakerFrom(cfg.Breaker)
	breakerCfg.OnStateChange = func(host string, from, to resilience.CircuitState) {
		log.Warn("redirect: host circuit changed",
			zap.String("host", host),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
	return New(
		WithMaxHops(cfg.MaxHops),
		WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second),
		WithUserAgent(cfg.UserAgent),
		WithRetryPolicy(resilience.PolicyFrom(cfg.Retry)),
		WithBreakers(resilience.NewHostBreakers(breakerCfg)),
		WithRatePerHost(cfg.RatePerHost),
		WithLogger(log),
	)
}

// Resolve follows the redirect chain starting at rawURL. A URL without a
// redirect resolves to itself. When the hop limit is exceeded the last URL
// reached is returned; any failure returns rawURL.
func (r *HTTPResolver) Resolve(ctx context.Context, rawURL string) string {
	current := rawURL
	for hops := 0; ; hops++ {
		next, err := r.hop(ctx, current)
		if err != nil {
			metrics.RedirectResolutions.WithLabelValues(metrics.OutcomeFailed).Inc()
			r.log.Warn("redirect: resolution failed, keeping original url",
				zap.String("url", rawURL),
				zap.String("at", current),
				zap.Int("hops", hops),
				zap.Error(err),
			)
			return rawURL
		}

		if next == "" {
			outcome := metrics.OutcomeUnchanged
			if hops > 0 {
				outcome = metrics.OutcomeResolved
			}
			metrics.RedirectResolutions.WithLabelValues(outcome).Inc()
			metrics.RedirectHops.Observe(float64(hops))
			if hops > 0 {
				r.log.Debug("redirect: resolved",
					zap.String("url", rawURL),
					zap.String("resolved", current),
					zap.Int("hops", hops),
				)
			}
			return current
		}

		if hops >= r.maxHops {
			metrics.RedirectResolutions.WithLabelValues(metrics.OutcomeHopLimit).Inc()
			metrics.RedirectHops.Observe(float64(hops))
			r.log.Warn("redirect: hop limit exceeded",
				zap.String("url", rawURL),
				zap.String("at", current),
				zap.Int("max_hops", r.maxHops),
			)
			return current
		}
		current = next
	}
}

// hop issues one HEAD request and returns the absolute redirect target, or
// "" when current is terminal.
func (r *HTTPResolver) hop(ctx context.Context, current string) (string, error) {
	u, err := url.Parse(current)
	if err != nil {
		return "", eris.Wrap(err, "redirect: parse url")
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", eris.Errorf("redirect: unsupported url %q", current)
	}

	if lim := r.limiterFor(u.Host); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "redirect: rate limit wait")
		}
	}

	return resilience.Call(ctx, r.breakers.Get(u.Host), func(ctx context.Context) (string, error) {
		p := r.policy
		if p.OnRetry == nil {
			p.OnRetry = resilience.RetryLogger(r.log, current)
		}
		return resilience.Retry(ctx, p, func(ctx context.Context) (string, error) {
			return r.head(ctx, u)
		})
	})
}

func (r *HTTPResolver) head(ctx context.Context, u *url.URL) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return "", eris.Wrap(err, "redirect: create request")
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "redirect: send request")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return "", &resilience.StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}

	loc := resp.Header.Get("Location")
	if resp.StatusCode < 300 || resp.StatusCode > 399 || loc == "" {
		return "", nil
	}

	target, err := u.Parse(loc)
	if err != nil {
		return "", eris.Wrapf(err, "redirect: parse location %q", loc)
	}
	return target.String(), nil
}

func (r *HTTPResolver) limiterFor(host string) *rate.Limiter {
	if r.ratePerHost <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	lim, ok := r.limiters[host]
	if !ok {
		burst := int(r.ratePerHost)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(r.ratePerHost), burst)
		r.limiters[host] = lim
	}
	return lim
}
