package tokenizer

import "testing"

func TestHeuristicCounterApproximatesLength(t *testing.T) {
	c := heuristicCounter{}
	got := c.Count("a string of moderate length")
	if got <= 0 {
		t.Fatalf("expected a positive token count, got %d", got)
	}
}
