package similarity

import (
	"math"
	"testing"
)

func TestCosineSymmetry(t *testing.T) {
	a := []float32{0.1, 0.5, -0.3, 0.8}
	b := []float32{0.4, -0.2, 0.9, 0.1}

	ab, ok := Cosine(a, b)
	if !ok {
		t.Fatal("expected a defined similarity")
	}
	ba, ok := Cosine(b, a)
	if !ok {
		t.Fatal("expected a defined similarity")
	}

	if math.Abs(ab-ba) > 1e-12 {
		t.Errorf("cosine not symmetric: sim(a,b)=%v sim(b,a)=%v", ab, ba)
	}
}

func TestCosineSelfSimilarity(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.9, 0.05}

	got, ok := Cosine(a, a)
	if !ok {
		t.Fatal("expected a defined similarity")
	}
	if math.Abs(got-1.0) > 1e-6 {
		t.Errorf("sim(a,a) = %v, want 1.0", got)
	}
}

func TestCosineUndefinedCases(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"mismatched dimensions", []float32{1, 2, 3}, []float32{1, 2}},
		{"zero norm left", []float32{0, 0, 0}, []float32{1, 2, 3}},
		{"zero norm right", []float32{1, 2, 3}, []float32{0, 0, 0}},
		{"empty vectors", []float32{}, []float32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Cosine(tt.a, tt.b); ok {
				t.Errorf("expected undefined similarity for %s", tt.name)
			}
		})
	}
}

func TestRankOrdering(t *testing.T) {
	target := []float32{1, 0, 0}
	candidates := []Candidate{
		{ID: 1, Vector: []float32{0.9, 0.1, 0}},
		{ID: 2, Vector: []float32{1, 0, 0}},
		{ID: 3, Vector: []float32{0.95, 0.05, 0}},
	}

	ranked := Rank(target, candidates, 0.8)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Score < ranked[i].Score {
			t.Errorf("results not descending at %d: %v < %v", i, ranked[i-1].Score, ranked[i].Score)
		}
	}
	if ranked[0].ID != 2 {
		t.Errorf("expected the identical vector first, got id %d", ranked[0].ID)
	}
}

func TestRankStrictThreshold(t *testing.T) {
	target := []float32{1, 0}
	// (3, 4) against (1, 0) scores 3/5, which is exactly the float64 0.6:
	// dot and both norms are small integers, so no rounding occurs before
	// the final division. A >= filter would wrongly include it.
	candidates := []Candidate{
		{ID: 1, Vector: []float32{3, 4}},
		{ID: 2, Vector: []float32{1, 0}},
	}

	score, ok := Cosine(target, candidates[0].Vector)
	if !ok || score != 0.6 {
		t.Fatalf("fixture drifted: sim = %.20g, want exactly 0.6", score)
	}

	ranked := Rank(target, candidates, 0.6)

	if len(ranked) != 1 {
		t.Fatalf("expected 1 result, got %d", len(ranked))
	}
	if ranked[0].ID != 2 {
		t.Errorf("candidate scoring exactly at the threshold must be excluded, got id %d", ranked[0].ID)
	}
}

func TestRankSkipsDegenerateCandidates(t *testing.T) {
	target := []float32{1, 0, 0}
	candidates := []Candidate{
		{ID: 1, Vector: []float32{0, 0, 0}},       // zero norm
		{ID: 2, Vector: []float32{1, 0}},          // wrong dimensionality
		{ID: 3, Vector: []float32{0.99, 0.01, 0}}, // valid
	}

	ranked := Rank(target, candidates, 0.8)

	if len(ranked) != 1 || ranked[0].ID != 3 {
		t.Fatalf("expected only the valid candidate, got %+v", ranked)
	}
}

func TestRankStableTies(t *testing.T) {
	target := []float32{1, 0}
	// Identical vectors score identically; input order must survive.
	candidates := []Candidate{
		{ID: 7, Vector: []float32{0.9, 0.1}},
		{ID: 3, Vector: []float32{0.9, 0.1}},
		{ID: 5, Vector: []float32{0.9, 0.1}},
	}

	ranked := Rank(target, candidates, 0.5)

	want := []int64{7, 3, 5}
	if len(ranked) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(ranked))
	}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Errorf("tie order broken at %d: got id %d, want %d", i, ranked[i].ID, id)
		}
	}
}

func TestRankDoesNotMutateInputs(t *testing.T) {
	target := []float32{1, 0}
	candidates := []Candidate{
		{ID: 1, Vector: []float32{0.5, 0.5}},
		{ID: 2, Vector: []float32{0.99, 0.01}},
	}

	Rank(target, candidates, 0.8)

	if candidates[0].ID != 1 || candidates[1].ID != 2 {
		t.Error("candidate order mutated")
	}
	if target[0] != 1 || target[1] != 0 {
		t.Error("target mutated")
	}
}
