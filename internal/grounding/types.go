// Package grounding turns model grounding metadata into inline citations.
//
// The pipeline validates the metadata, selects one winning source chunk per
// supported span, resolves the winning URLs through the redirect resolver,
// splices citation markers into the text and appends a reference list.
package grounding

// Source is the web or retrieval source behind a chunk.
type Source struct {
	URI    string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// Chunk is one grounding source. Its index in Metadata.GroundingChunks is
// the identifier supports refer to.
type Chunk struct {
	Web              *Source `json:"web,omitempty" yaml:"web,omitempty"`
	RetrievedContext *Source `json:"retrievedContext,omitempty" yaml:"retrievedContext,omitempty"`
}

func (c Chunk) source() *Source {
	if c.Web != nil {
		return c.Web
	}
	return c.RetrievedContext
}

// URI returns the chunk's URI, preferring the web source.
func (c Chunk) URI() string {
	if s := c.source(); s != nil {
		return s.URI
	}
	return ""
}

// Title returns the chunk's title, preferring the web source.
func (c Chunk) Title() string {
	if s := c.source(); s != nil {
		return s.Title
	}
	return ""
}

// Segment is a span of the original text.
type Segment struct {
	StartIndex *int   `json:"startIndex,omitempty" yaml:"startIndex,omitempty"`
	EndIndex   *int   `json:"endIndex,omitempty" yaml:"endIndex,omitempty"`
	Text       string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Support ties a span of the text to candidate chunks. ConfidenceScores are
// positional with GroundingChunkIndices.
type Support struct {
	Segment               *Segment  `json:"segment,omitempty" yaml:"segment,omitempty"`
	GroundingChunkIndices []int     `json:"groundingChunkIndices,omitempty" yaml:"groundingChunkIndices,omitempty"`
	ConfidenceScores      []float64 `json:"confidenceScores,omitempty" yaml:"confidenceScores,omitempty"`
}

// Span returns the support's [start, end) offsets. A missing start index is
// read as 0, which is how the upstream API encodes a zero offset. A missing
// segment or end index yields ok == false.
func (s Support) Span() (start, end int, ok bool) {
	if s.Segment == nil || s.Segment.EndIndex == nil {
		return 0, 0, false
	}
	if s.Segment.StartIndex != nil {
		start = *s.Segment.StartIndex
	}
	return start, *s.Segment.EndIndex, true
}

// Metadata is the grounding payload attached to a model response.
type Metadata struct {
	GroundingChunks   []Chunk   `json:"groundingChunks,omitempty" yaml:"groundingChunks,omitempty"`
	GroundingSupports []Support `json:"groundingSupports,omitempty" yaml:"groundingSupports,omitempty"`
	WebSearchQueries  []string  `json:"webSearchQueries,omitempty" yaml:"webSearchQueries,omitempty"`
}

// HasGrounding reports whether m carries both chunks and supports. A nil
// Metadata has no grounding.
func (m *Metadata) HasGrounding() bool {
	return m != nil && len(m.GroundingChunks) > 0 && len(m.GroundingSupports) > 0
}

// IntPtr returns a pointer to v, for building segments in code.
func IntPtr(v int) *int { return &v }
