package quant

import (
	"math/rand"
	"testing"
)

func ip(v int) *int { return &v }

func h2h(pairs ...[2]int) []H2HScore {
	out := make([]H2HScore, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, H2HScore{Home: ip(p[0]), Away: ip(p[1])})
	}
	return out
}

func TestBTTSTrendScenario(t *testing.T) {
	scores := h2h([2]int{2, 1}, [2]int{1, 0}, [2]int{1, 2}, [2]int{0, 0}, [2]int{3, 1})
	got := CalculateBTTSTrend(scores)

	if got.Hits != 3 || got.TotalGames != 5 {
		t.Errorf("hits/games = %d/%d, want 3/5", got.Hits, got.TotalGames)
	}
	if got.Rate != 60.0 {
		t.Errorf("rate = %f, want 60.0", got.Rate)
	}
	if got.Signal != "High" {
		t.Errorf("signal = %q, want High", got.Signal)
	}
}

func TestBTTSTrendPermutationInvariant(t *testing.T) {
	scores := h2h([2]int{2, 1}, [2]int{1, 0}, [2]int{1, 2}, [2]int{0, 0}, [2]int{3, 1}, [2]int{0, 2})
	want := CalculateBTTSTrend(scores)

	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		shuffled := append([]H2HScore(nil), scores...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := CalculateBTTSTrend(shuffled); got != want {
			t.Fatalf("permutation changed result: %+v vs %+v", got, want)
		}
	}
}

func TestBTTSTrendSkipsMissingScores(t *testing.T) {
	scores := []H2HScore{
		{Home: ip(1), Away: ip(1)},
		{Home: nil, Away: ip(2)},
		{Home: ip(3), Away: nil},
	}
	got := CalculateBTTSTrend(scores)
	if got.TotalGames != 1 || got.Hits != 1 {
		t.Errorf("got %d/%d, want 1/1", got.Hits, got.TotalGames)
	}
	if got.Hits > got.TotalGames {
		t.Error("hits exceed total games")
	}
}

func TestBTTSTrendEmpty(t *testing.T) {
	got := CalculateBTTSTrend(nil)
	if got.Signal != "Unknown" || got.Rate != 0 {
		t.Errorf("empty input: %+v", got)
	}
}
