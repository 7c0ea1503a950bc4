// Package citation accumulates citations across research rounds and turns
// them into a reference list for a finished report.
package citation

import (
	"go.uber.org/zap"

	"github.com/sells-group/grounding-cli/internal/grounding"
)

// Citation is a cited source. StartIndex and EndIndex are set together for
// citations bound to a span of the text they came from.
type Citation struct {
	URI        string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	StartIndex *int   `json:"startIndex,omitempty" yaml:"startIndex,omitempty"`
	EndIndex   *int   `json:"endIndex,omitempty" yaml:"endIndex,omitempty"`
}

// SpanBound reports whether c carries both span offsets.
func (c Citation) SpanBound() bool {
	return c.StartIndex != nil && c.EndIndex != nil
}

// Manager is an ordered, immutable list of citations. Every method that
// changes the list returns a new Manager, so one Manager can be shared
// between goroutines and extended independently by each.
type Manager struct {
	citations []Citation
}

// New returns a Manager holding a copy of cs.
func New(cs ...Citation) Manager {
	return Manager{citations: clone(cs)}
}

func clone(cs []Citation) []Citation {
	if len(cs) == 0 {
		return nil
	}
	out := make([]Citation, len(cs))
	copy(out, cs)
	return out
}

// Add returns a Manager with c appended.
func (m Manager) Add(c Citation) Manager {
	return m.AddAll([]Citation{c})
}

// AddAll returns a Manager with cs appended in order. No deduplication is
// done.
func (m Manager) AddAll(cs []Citation) Manager {
	out := make([]Citation, 0, len(m.citations)+len(cs))
	out = append(out, m.citations...)
	out = append(out, cs...)
	return Manager{citations: out}
}

// Merge returns a Manager with other's citations appended.
func (m Manager) Merge(other Manager) Manager {
	return m.AddAll(other.citations)
}

// Deduplicate returns a Manager keeping the first citation for each URI.
// Citations without a URI are dropped.
func (m Manager) Deduplicate() Manager {
	seen := make(map[string]struct{}, len(m.citations))
	var out []Citation
	for _, c := range m.citations {
		if c.URI == "" {
			continue
		}
		if _, ok := seen[c.URI]; ok {
			continue
		}
		seen[c.URI] = struct{}{}
		out = append(out, c)
	}
	return Manager{citations: out}
}

// Citations returns a copy of the citations.
func (m Manager) Citations() []Citation {
	return clone(m.citations)
}

// SpanBound returns the span-bound citations in order.
func (m Manager) SpanBound() []Citation {
	var out []Citation
	for _, c := range m.citations {
		if c.SpanBound() {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of citations.
func (m Manager) Len() int { return len(m.citations) }

// FromGrounding extracts one span-bound citation per support whose best
// source has a URI. Supports without a usable span or source are skipped.
func FromGrounding(md *grounding.Metadata, log *zap.Logger) Manager {
	if !md.HasGrounding() {
		return Manager{}
	}
	if log == nil {
		log = zap.L()
	}

	var out []Citation
	for _, s := range md.GroundingSupports {
		start, end, ok := s.Span()
		if !ok {
			continue
		}
		idx, ok := grounding.SelectBestChunk(s, md.GroundingChunks)
		if !ok {
			continue
		}
		chunk := md.GroundingChunks[idx]
		out = append(out, Citation{
			URI:        chunk.URI(),
			Title:      chunk.Title(),
			StartIndex: grounding.IntPtr(start),
			EndIndex:   grounding.IntPtr(end),
		})
	}

	if len(out) > 0 {
		log.Info("citation: extracted citations from grounding",
			zap.Int("citations", len(out)),
			zap.Int("supports", len(md.GroundingSupports)),
		)
	}
	return Manager{citations: out}
}

// FromURLs builds reference-only citations from a flat URL list, as search
// providers that return bare citation URLs produce. Empty entries are
// skipped.
func FromURLs(urls []string) Manager {
	var out []Citation
	for _, u := range urls {
		if u == "" {
			continue
		}
		out = append(out, Citation{URI: u})
	}
	return Manager{citations: out}
}
