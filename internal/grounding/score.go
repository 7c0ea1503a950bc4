package grounding

// DefaultScoreThreshold is the mean confidence at which a response counts as
// grounded.
const DefaultScoreThreshold = 0.5

// Evaluation summarizes the grounding quality of a response.
type Evaluation struct {
	Score        float64  `json:"score"`
	HasGrounding bool     `json:"has_grounding"`
	URLs         []string `json:"urls"`
}

// Score returns the mean of every confidence score across all supports, or
// 0 when there are none.
func Score(md *Metadata) float64 {
	if md == nil {
		return 0
	}
	var sum float64
	var n int
	for _, s := range md.GroundingSupports {
		for _, c := range s.ConfidenceScores {
			sum += c
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// URLs returns the URI of every chunk that has one, in chunk order.
func URLs(md *Metadata) []string {
	urls := []string{}
	if md == nil {
		return urls
	}
	for _, c := range md.GroundingChunks {
		if u := c.URI(); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Evaluate scores md against threshold.
func Evaluate(md *Metadata, threshold float64) Evaluation {
	score := Score(md)
	return Evaluation{
		Score:        score,
		HasGrounding: score >= threshold,
		URLs:         URLs(md),
	}
}
