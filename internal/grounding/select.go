package grounding

// eligible reports whether idx names a chunk with a usable URI.
func eligible(idx int, chunks []Chunk) bool {
	return idx >= 0 && idx < len(chunks) && chunks[idx].URI() != ""
}

// SelectBestChunk picks the chunk that best supports s.
//
// With confidence scores, candidates are scanned in order and the highest
// score wins; a missing score counts as 0 and ties keep the earlier
// candidate. Without scores the first eligible candidate wins. Candidates
// that are out of range or lack a URI are never chosen. ok is false when no
// candidate is eligible.
func SelectBestChunk(s Support, chunks []Chunk) (index int, ok bool) {
	scored := len(s.ConfidenceScores) > 0
	best, bestScore := -1, 0.0

	for pos, idx := range s.GroundingChunkIndices {
		if !eligible(idx, chunks) {
			continue
		}
		if !scored {
			return idx, true
		}
		var score float64
		if pos < len(s.ConfidenceScores) {
			score = s.ConfidenceScores[pos]
		}
		if best < 0 || score > bestScore {
			best, bestScore = idx, score
		}
	}
	return best, best >= 0
}
