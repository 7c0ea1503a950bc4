package citation

import (
	"context"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/grounding-cli/internal/config"
	"github.com/sells-group/grounding-cli/internal/metrics"
	"github.com/sells-group/grounding-cli/internal/redirect"
	"github.com/sells-group/grounding-cli/internal/reference"
	"github.com/sells-group/grounding-cli/internal/throttle"
)

// markerPattern matches numeric inline markers such as [3].
var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// Reporter appends a resolved reference list to finished reports.
type Reporter struct {
	resolver redirect.Resolver
	throttle *throttle.Throttle
	refs     *reference.Builder
	log      *zap.Logger
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithResolver sets the redirect resolver.
func WithResolver(r redirect.Resolver) ReporterOption {
	return func(rp *Reporter) { rp.resolver = r }
}

// WithThrottle sets the throttle resolutions run through.
func WithThrottle(t *throttle.Throttle) ReporterOption {
	return func(rp *Reporter) { rp.throttle = t }
}

// WithReferenceBuilder sets the reference list renderer.
func WithReferenceBuilder(b *reference.Builder) ReporterOption {
	return func(rp *Reporter) { rp.refs = b }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ReporterOption {
	return func(rp *Reporter) { rp.log = l }
}

// NewReporter creates a Reporter with defaults for any unset dependency.
func NewReporter(opts ...ReporterOption) *Reporter {
	rp := &Reporter{log: zap.L()}
	for _, o := range opts {
		o(rp)
	}
	if rp.resolver == nil {
		rp.resolver = redirect.New(redirect.WithLogger(rp.log))
	}
	if rp.throttle == nil {
		rp.throttle = throttle.New(throttle.WithLogger(rp.log))
	}
	if rp.refs == nil {
		rp.refs = reference.NewBuilder()
	}
	return rp
}

// ReporterFromConfig builds a Reporter and its dependencies from cfg.
func ReporterFromConfig(cfg *config.Config, log *zap.Logger) *Reporter {
	return NewReporter(
		WithResolver(redirect.FromConfig(cfg.Resolver, log)),
		WithThrottle(throttle.FromConfig(cfg.Throttle, log)),
		WithReferenceBuilder(reference.FromConfig(cfg.Format)),
		WithLogger(log),
	)
}

// maxMarker returns the largest [n] marker in text, or 0.
func maxMarker(text string) (highest, count int) {
	for _, m := range markerPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		count++
		if n > highest {
			highest = n
		}
	}
	return highest, count
}

// Order returns the deduplicated citations of m in reference order. Markers
// [1]..[n] already in text claim the first n citations, then span-bound
// citations follow, then the rest.
func Order(m Manager, text string) []Citation {
	unique := m.Deduplicate()
	all := unique.Citations()
	if len(all) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(all))
	processed := make([]Citation, 0, len(all))
	push := func(c Citation) {
		if _, ok := seen[c.URI]; ok {
			return
		}
		seen[c.URI] = struct{}{}
		processed = append(processed, c)
	}

	maxN, _ := maxMarker(text)
	for i := 1; i <= maxN && i <= len(all); i++ {
		push(all[i-1])
	}
	for _, c := range unique.SpanBound() {
		push(c)
	}
	for _, c := range all {
		push(c)
	}
	return processed
}

// AssembleReport appends the reference list for m to text. Every cited URL
// is resolved through the throttle; a failed resolution keeps the original
// URL. With no citable entries the text is returned unchanged.
func (rp *Reporter) AssembleReport(ctx context.Context, m Manager, text string) (string, error) {
	ordered := Order(m, text)
	if len(ordered) == 0 {
		rp.log.Warn("citation: no citations, returning report unchanged", zap.Int("citations", m.Len()))
		metrics.ReportsProcessed.WithLabelValues("report", "passthrough").Inc()
		return text, nil
	}

	_, markers := maxMarker(text)
	rp.log.Info("citation: assembling references",
		zap.Int("citations", m.Len()),
		zap.Int("unique", len(ordered)),
		zap.Int("markers", markers),
	)

	uris := make([]string, len(ordered))
	for i, c := range ordered {
		uris[i] = c.URI
	}
	resolved, err := redirect.ResolveAll(ctx, rp.resolver, rp.throttle, uris, rp.log)
	if err != nil {
		metrics.ReportsProcessed.WithLabelValues("report", "error").Inc()
		return text, err
	}

	refs := make([]reference.Reference, len(ordered))
	for i, c := range ordered {
		refs[i] = reference.Reference{
			OriginalURI: c.URI,
			ResolvedURI: resolved[c.URI],
			Title:       c.Title,
		}
	}

	metrics.ReportsProcessed.WithLabelValues("report", "assembled").Inc()
	return text + rp.refs.Build(refs), nil
}
