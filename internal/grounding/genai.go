package grounding

import "google.golang.org/genai"

// FromGenAI converts grounding metadata from the Gen AI SDK. The SDK reports
// segment offsets in UTF-8 bytes, so a Processor fed from it should use
// UnitByte.
func FromGenAI(g *genai.GroundingMetadata) *Metadata {
	if g == nil {
		return &Metadata{}
	}

	md := &Metadata{
		GroundingChunks:   make([]Chunk, 0, len(g.GroundingChunks)),
		GroundingSupports: make([]Support, 0, len(g.GroundingSupports)),
		WebSearchQueries:  g.WebSearchQueries,
	}

	// Nil chunks keep their slot so support indices still line up.
	for _, c := range g.GroundingChunks {
		var chunk Chunk
		if c != nil {
			if c.Web != nil {
				chunk.Web = &Source{URI: c.Web.URI, Title: c.Web.Title, Domain: c.Web.Domain}
			} else if c.RetrievedContext != nil {
				chunk.RetrievedContext = &Source{URI: c.RetrievedContext.URI, Title: c.RetrievedContext.Title}
			}
		}
		md.GroundingChunks = append(md.GroundingChunks, chunk)
	}

	for _, s := range g.GroundingSupports {
		if s == nil {
			continue
		}
		sup := Support{
			GroundingChunkIndices: make([]int, len(s.GroundingChunkIndices)),
		}
		for i, idx := range s.GroundingChunkIndices {
			sup.GroundingChunkIndices[i] = int(idx)
		}
		if len(s.ConfidenceScores) > 0 {
			sup.ConfidenceScores = make([]float64, len(s.ConfidenceScores))
			for i, c := range s.ConfidenceScores {
				sup.ConfidenceScores[i] = float64(c)
			}
		}
		if s.Segment != nil {
			sup.Segment = &Segment{
				StartIndex: IntPtr(int(s.Segment.StartIndex)),
				EndIndex:   IntPtr(int(s.Segment.EndIndex)),
				Text:       s.Segment.Text,
			}
		}
		md.GroundingSupports = append(md.GroundingSupports, sup)
	}
	return md
}
