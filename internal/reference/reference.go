// Package reference renders the numbered bibliography appended to cited text.
package reference

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/sells-group/grounding-cli/internal/config"
)

// Style selects the line format of the reference list.
type Style string

const (
	// StyleNumbered renders "1. Title: https://...".
	StyleNumbered Style = "numbered"
	// StyleMarkdown renders "[1] [Title](https://...)".
	StyleMarkdown Style = "markdown"
)

// Reference is a source whose URL has been resolved.
type Reference struct {
	OriginalURI string `json:"original_uri"`
	ResolvedURI string `json:"resolved_uri"`
	Title       string `json:"title"`
}

// URL returns the resolved URL, or the original when resolution produced
// nothing.
func (r Reference) URL() string {
	if r.ResolvedURI != "" {
		return r.ResolvedURI
	}
	return r.OriginalURI
}

type labels struct {
	heading      string
	defaultTitle string
}

var (
	supported = []language.Tag{language.Japanese, language.English}
	matcher   = language.NewMatcher(supported)
	localized = []labels{
		{heading: "参考文献", defaultTitle: "タイトルなし"},
		{heading: "References", defaultTitle: "Untitled"},
	}
)

func labelsFor(lang string) labels {
	tag, err := language.Parse(lang)
	if err != nil {
		return localized[0]
	}
	_, idx, _ := matcher.Match(tag)
	return localized[idx]
}

// Builder renders reference lists.
type Builder struct {
	style        Style
	heading      string
	defaultTitle string
}

// Option configures a Builder.
type Option func(*Builder)

// WithStyle selects the line format. Unknown styles fall back to numbered.
func WithStyle(s Style) Option {
	return func(b *Builder) {
		switch s {
		case StyleNumbered, StyleMarkdown:
			b.style = s
		}
	}
}

// WithLanguage picks the heading and default title for a BCP 47 language.
// Explicit WithHeading / WithDefaultTitle options applied later win.
func WithLanguage(lang string) Option {
	return func(b *Builder) {
		l := labelsFor(lang)
		b.heading = l.heading
		b.defaultTitle = l.defaultTitle
	}
}

// WithHeading overrides the section heading text.
func WithHeading(h string) Option {
	return func(b *Builder) {
		if h != "" {
			b.heading = h
		}
	}
}

// WithDefaultTitle overrides the title used for untitled sources.
func WithDefaultTitle(t string) Option {
	return func(b *Builder) {
		if t != "" {
			b.defaultTitle = t
		}
	}
}

// NewBuilder creates a Builder. Defaults: numbered style, Japanese labels.
func NewBuilder(opts ...Option) *Builder {
	l := localized[0]
	b := &Builder{
		style:        StyleNumbered,
		heading:      l.heading,
		defaultTitle: l.defaultTitle,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// FromConfig builds a Builder from format config values.
func FromConfig(cfg config.FormatConfig) *Builder {
	return NewBuilder(
		WithStyle(Style(cfg.ReferenceStyle)),
		WithLanguage(cfg.Language),
		WithHeading(cfg.Heading),
		WithDefaultTitle(cfg.DefaultTitle),
	)
}

// Title returns t, or the default title when t is blank.
func (b *Builder) Title(t string) string {
	if strings.TrimSpace(t) == "" {
		return b.defaultTitle
	}
	return t
}

// Line renders the reference numbered n (1-based).
func (b *Builder) Line(n int, ref Reference) string {
	title := b.Title(ref.Title)
	if b.style == StyleMarkdown {
		return fmt.Sprintf("[%d] [%s](%s)", n, title, ref.URL())
	}
	return fmt.Sprintf("%d. %s: %s", n, title, ref.URL())
}

// Build renders the reference section to append after the text, including
// its leading blank line. No references yields "".
func (b *Builder) Build(refs []Reference) string {
	if len(refs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\n## ")
	sb.WriteString(b.heading)
	sb.WriteString("\n\n")
	for i, ref := range refs {
		sb.WriteString(b.Line(i+1, ref))
		sb.WriteString("\n")
	}
	return sb.String()
}
