// Package similarity scores and ranks embedding vectors by cosine similarity.
//
// Ranking is a brute-force O(n*d) scan over the supplied candidates; it is
// deliberately index-free and only suitable for small corpora.
package similarity

import (
	"math"
	"sort"
)

// DefaultThreshold is the reference cutoff: only candidates scoring strictly
// above it count as matches.
const DefaultThreshold = 0.8

// Candidate pairs a document id with its stored embedding.
type Candidate struct {
	ID     int64
	Vector []float32
}

// Scored is a ranked candidate.
type Scored struct {
	ID    int64
	Score float64
}

// Cosine returns the cosine similarity of a and b. ok is false when the
// vectors differ in dimensionality or either has zero norm; such pairs have
// no defined similarity.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, false
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)), true
}

// Rank scores every candidate against the target, keeps those strictly above
// the threshold, and orders them by descending similarity. Candidates with a
// mismatched dimensionality or zero norm are skipped rather than aborting
// the scan. Ties keep their original candidate order. Inputs are not
// mutated.
func Rank(target []float32, candidates []Candidate, threshold float64) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		score, ok := Cosine(target, c.Vector)
		if !ok {
			continue
		}
		if score > threshold {
			scored = append(scored, Scored{ID: c.ID, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}
