package grounding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	assert.InDelta(t, 0.8, Score(sampleMetadata()), 1e-9)
	assert.Equal(t, 0.0, Score(nil))
	assert.Equal(t, 0.0, Score(&Metadata{GroundingSupports: []Support{{GroundingChunkIndices: []int{0}}}}))

	md := &Metadata{GroundingSupports: []Support{
		{ConfidenceScores: []float64{0.2, 0.4}},
		{},
		{ConfidenceScores: []float64{0.9}},
	}}
	assert.InDelta(t, 0.5, Score(md), 1e-9)
}

func TestEvaluate(t *testing.T) {
	ev := Evaluate(sampleMetadata(), DefaultScoreThreshold)
	assert.True(t, ev.HasGrounding)
	assert.Equal(t, []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}, ev.URLs)

	low := &Metadata{
		GroundingChunks:   []Chunk{{Web: &Source{URI: "https://a.example"}}, {}},
		GroundingSupports: []Support{{ConfidenceScores: []float64{0.3}}},
	}
	ev = Evaluate(low, DefaultScoreThreshold)
	assert.False(t, ev.HasGrounding)
	assert.Equal(t, []string{"https://a.example"}, ev.URLs)

	ev = Evaluate(nil, DefaultScoreThreshold)
	assert.False(t, ev.HasGrounding)
	assert.Empty(t, ev.URLs)
	assert.NotNil(t, ev.URLs)
}

func TestEvaluate_ThresholdIsInclusive(t *testing.T) {
	md := &Metadata{GroundingSupports: []Support{{ConfidenceScores: []float64{0.5}}}}
	assert.True(t, Evaluate(md, 0.5).HasGrounding)
}
