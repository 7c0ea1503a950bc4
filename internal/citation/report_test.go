package citation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/grounding-cli/internal/config"
	"github.com/sells-group/grounding-cli/internal/redirect"
	"github.com/sells-group/grounding-cli/internal/reference"
	"github.com/sells-group/grounding-cli/internal/throttle"
)

func identity() redirect.Resolver {
	return redirect.ResolverFunc(func(_ context.Context, u string) string { return u })
}

func testReporter(r redirect.Resolver, opts ...ReporterOption) *Reporter {
	log := zap.NewNop()
	base := []ReporterOption{
		WithResolver(r),
		WithThrottle(throttle.New(throttle.WithMinSpacing(0), throttle.WithLogger(log))),
		WithLogger(log),
	}
	return NewReporter(append(base, opts...)...)
}

func TestOrder_MarkersClaimPrefix(t *testing.T) {
	m := New(
		cite("u1", ""),
		spanCite("u2", 0, 1),
		cite("u3", ""),
		spanCite("u4", 1, 2),
		cite("u1", "dup"),
	)

	// [1] claims u1; span-bound u2 and u4 follow before u3.
	assert.Equal(t, []string{"u1", "u2", "u4", "u3"}, uris(Order(m, "text [1]")))

	// [3] claims u1..u3.
	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, uris(Order(m, "see [3] and [2]")))

	// Markers past the list length are capped.
	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, uris(Order(m, "[99]")))

	// No markers: span-bound first.
	assert.Equal(t, []string{"u2", "u4", "u1", "u3"}, uris(Order(m, "plain")))
}

func TestOrder_SpanBoundDrawnFromDeduplicated(t *testing.T) {
	// A later duplicate carries a span; the first occurrence does not.
	m := New(cite("u1", "first"), cite("u2", ""), spanCite("u1", 0, 3))
	got := Order(m, "plain")
	assert.Equal(t, []string{"u1", "u2"}, uris(got))
	assert.Equal(t, "first", got[0].Title)
}

func TestOrder_Empty(t *testing.T) {
	assert.Nil(t, Order(New(), "[1]"))
	assert.Nil(t, Order(New(cite("", "no uri")), "text"))
}

func TestAssembleReport(t *testing.T) {
	m := New(
		cite("https://short.example/1", "One"),
		cite("https://short.example/2", ""),
		cite("https://short.example/1", "dup"),
	)
	r := redirect.ResolverFunc(func(_ context.Context, u string) string {
		return strings.Replace(u, "short", "long", 1)
	})

	got, err := testReporter(r).AssembleReport(context.Background(), m, "Report body [1][2].")
	require.NoError(t, err)

	want := "Report body [1][2]." +
		"\n\n## 参考文献\n\n" +
		"1. One: https://long.example/1\n" +
		"2. タイトルなし: https://long.example/2\n"
	assert.Equal(t, want, got)
}

func TestAssembleReport_MarkdownStyle(t *testing.T) {
	m := FromURLs([]string{"https://a.example"})
	rp := testReporter(identity(), WithReferenceBuilder(reference.NewBuilder(
		reference.WithStyle(reference.StyleMarkdown),
		reference.WithLanguage("en"),
	)))

	got, err := rp.AssembleReport(context.Background(), m, "Body")
	require.NoError(t, err)
	assert.Equal(t, "Body\n\n## References\n\n[1] [Untitled](https://a.example)\n", got)
}

func TestAssembleReport_EmptyPassthrough(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rp := testReporter(identity(), WithLogger(zap.New(core)))

	got, err := rp.AssembleReport(context.Background(), New(cite("", "no uri")), "Body [1]")
	require.NoError(t, err)
	assert.Equal(t, "Body [1]", got)
	assert.Equal(t, 1, logs.FilterMessage("citation: no citations, returning report unchanged").Len())
}

func TestAssembleReport_FailedResolutionKeepsOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/elsewhere")
		w.WriteHeader(http.StatusFound)
	}))
	srv.Close() // every request fails

	resolver := redirect.New(redirect.WithLogger(zap.NewNop()))
	m := FromURLs([]string{srv.URL + "/a"})

	got, err := testReporter(resolver).AssembleReport(context.Background(), m, "Body")
	require.NoError(t, err)
	assert.Equal(t, "Body\n\n## 参考文献\n\n1. タイトルなし: "+srv.URL+"/a\n", got)
}

func TestReporterFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Throttle.MaxConcurrent = 4
	cfg.Format.ReferenceStyle = "markdown"
	cfg.Format.Language = "en"

	rp := ReporterFromConfig(cfg, zap.NewNop())
	assert.Equal(t, 4, rp.throttle.MaxConcurrent())
	assert.Equal(t, "[1] [Untitled](u)", rp.refs.Line(1, reference.Reference{OriginalURI: "u"}))
}

func TestMaxMarker(t *testing.T) {
	n, count := maxMarker("a [2] b [10] c [x] d [3]")
	assert.Equal(t, 10, n)
	assert.Equal(t, 3, count)

	n, count = maxMarker("none")
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, count)
}
