package grounding

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/grounding-cli/internal/config"
	"github.com/sells-group/grounding-cli/internal/metrics"
	"github.com/sells-group/grounding-cli/internal/redirect"
	"github.com/sells-group/grounding-cli/internal/reference"
	"github.com/sells-group/grounding-cli/internal/throttle"
)

// InlineStyle selects how a cited span is marked in the text.
type InlineStyle string

const (
	// InlineLink wraps the span in a markdown link: [span](url).
	InlineLink InlineStyle = "link"
	// InlineNumber appends the reference number: span[1].
	InlineNumber InlineStyle = "number"
)

// Processor annotates text with the sources in its grounding metadata.
type Processor struct {
	resolver redirect.Resolver
	throttle *throttle.Throttle
	refs     *reference.Builder
	inline   InlineStyle
	unit     OffsetUnit
	log      *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithResolver sets the redirect resolver.
func WithResolver(r redirect.Resolver) Option {
	return func(p *Processor) { p.resolver = r }
}

// WithThrottle sets the throttle resolutions run through.
func WithThrottle(t *throttle.Throttle) Option {
	return func(p *Processor) { p.throttle = t }
}

// WithReferenceBuilder sets the reference list renderer.
func WithReferenceBuilder(b *reference.Builder) Option {
	return func(p *Processor) { p.refs = b }
}

// WithInlineStyle sets the inline marker style.
func WithInlineStyle(s InlineStyle) Option {
	return func(p *Processor) {
		switch s {
		case InlineLink, InlineNumber:
			p.inline = s
		}
	}
}

// WithOffsetUnit sets the unit span offsets are measured in.
func WithOffsetUnit(u OffsetUnit) Option {
	return func(p *Processor) {
		switch u {
		case UnitRune, UnitByte:
			p.unit = u
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.log = l }
}

// NewProcessor creates a Processor. Unset dependencies fall back to a
// default HTTP resolver, a default throttle and a Japanese numbered
// reference list.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		inline: InlineLink,
		unit:   UnitRune,
		log:    zap.L(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.resolver == nil {
		p.resolver = redirect.New(redirect.WithLogger(p.log))
	}
	if p.throttle == nil {
		p.throttle = throttle.New(throttle.WithLogger(p.log))
	}
	if p.refs == nil {
		p.refs = reference.NewBuilder()
	}
	return p
}

// FromConfig builds a Processor and its dependencies from cfg.
func FromConfig(cfg *config.Config, log *zap.Logger) *Processor {
	return NewProcessor(
		WithResolver(redirect.FromConfig(cfg.Resolver, log)),
		WithThrottle(throttle.FromConfig(cfg.Throttle, log)),
		WithReferenceBuilder(reference.FromConfig(cfg.Format)),
		WithInlineStyle(InlineStyle(cfg.Format.InlineStyle)),
		WithOffsetUnit(OffsetUnit(cfg.Format.OffsetUnit)),
		WithLogger(log),
	)
}

// citedSpan is a span of the original text and the chunk chosen for it.
type citedSpan struct {
	start, end int
	text       string
	chunk      int
}

// Process returns text with inline citations and a reference list. Text
// without usable grounding is returned unchanged. Resolution failures fall
// back to the original URLs, so the only error is a failed batch dispatch.
func (p *Processor) Process(ctx context.Context, text string, md *Metadata) (string, error) {
	if !md.HasGrounding() {
		p.log.Warn("grounding: no usable grounding metadata, returning text unchanged")
		metrics.ReportsProcessed.WithLabelValues("annotate", "passthrough").Inc()
		return text, nil
	}

	spans := p.selectSpans(text, md)
	if len(spans) == 0 {
		p.log.Warn("grounding: no support has an eligible source, returning text unchanged",
			zap.Int("supports", len(md.GroundingSupports)),
		)
		metrics.ReportsProcessed.WithLabelValues("annotate", "passthrough").Inc()
		return text, nil
	}

	// Reference numbers follow first appearance in the text.
	var (
		order  []int
		number = make(map[int]int)
		uris   []string
	)
	for _, s := range spans {
		if _, ok := number[s.chunk]; ok {
			continue
		}
		order = append(order, s.chunk)
		number[s.chunk] = len(order)
		uris = append(uris, md.GroundingChunks[s.chunk].URI())
	}

	resolved, err := redirect.ResolveAll(ctx, p.resolver, p.throttle, uris, p.log)
	if err != nil {
		metrics.ReportsProcessed.WithLabelValues("annotate", "error").Inc()
		return text, err
	}

	edits := make([]Edit, len(spans))
	for i, s := range spans {
		url := resolved[md.GroundingChunks[s.chunk].URI()]
		edits[i] = Edit{Start: s.start, End: s.end, Replacement: p.marker(s.text, url, number[s.chunk])}
	}

	refs := make([]reference.Reference, len(order))
	for i, idx := range order {
		c := md.GroundingChunks[idx]
		refs[i] = reference.Reference{
			OriginalURI: c.URI(),
			ResolvedURI: resolved[c.URI()],
			Title:       c.Title(),
		}
	}

	out := Annotate(text, edits, p.unit, p.log) + p.refs.Build(refs)

	p.log.Info("grounding: annotated text",
		zap.Int("supports", len(md.GroundingSupports)),
		zap.Int("citations", len(edits)),
		zap.Int("references", len(refs)),
	)
	metrics.ReportsProcessed.WithLabelValues("annotate", "annotated").Inc()
	return out, nil
}

// selectSpans picks a chunk per support, drops spans that do not fit the
// text, sorts by start and removes overlaps. The earlier span of an
// overlapping pair wins.
func (p *Processor) selectSpans(text string, md *Metadata) []citedSpan {
	var spans []citedSpan
	for i, s := range md.GroundingSupports {
		start, end, ok := s.Span()
		if !ok {
			p.log.Debug("grounding: support has no span", zap.Int("support", i))
			continue
		}
		chunk, ok := SelectBestChunk(s, md.GroundingChunks)
		if !ok {
			p.log.Debug("grounding: support has no eligible source", zap.Int("support", i))
			continue
		}
		seg, ok := p.unit.Slice(text, start, end)
		if !ok {
			p.log.Warn("grounding: support span outside text",
				zap.Int("support", i),
				zap.Int("start", start),
				zap.Int("end", end),
				zap.Int("length", p.unit.Length(text)),
			)
			metrics.EditsSkipped.WithLabelValues("out_of_range").Inc()
			continue
		}
		spans = append(spans, citedSpan{start: start, end: end, text: seg, chunk: chunk})
	}

	slices.SortStableFunc(spans, func(a, b citedSpan) int { return a.start - b.start })

	kept := spans[:0]
	lastEnd := 0
	for _, s := range spans {
		if len(kept) > 0 && s.start < lastEnd {
			p.log.Warn("grounding: dropping overlapping span",
				zap.Int("start", s.start),
				zap.Int("end", s.end),
				zap.Int("previous_end", lastEnd),
			)
			metrics.EditsSkipped.WithLabelValues("overlap").Inc()
			continue
		}
		kept = append(kept, s)
		lastEnd = s.end
	}
	return kept
}

func (p *Processor) marker(segment, url string, n int) string {
	if p.inline == InlineNumber {
		return fmt.Sprintf("%s[%d]", segment, n)
	}
	return fmt.Sprintf("[%s](%s)", segment, url)
}
