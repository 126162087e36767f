package normalize

import "testing"

func TestMatchCityExact(t *testing.T) {
	t.Parallel()

	candidates := []CityCandidate{
		{CityID: 1, NormalizedName: "essaouira"},
		{CityID: 2, NormalizedName: "marrakech"},
	}

	got, ok := MatchCity("essaouira", candidates)
	if !ok || got.CityID != 1 {
		t.Fatalf("MatchCity() = %+v, %v; want city 1", got, ok)
	}
}

func TestMatchCityFuzzyWithinCeiling(t *testing.T) {
	t.Parallel()

	candidates := []CityCandidate{
		{CityID: 1, NormalizedName: "essaouira"},
	}

	got, ok := MatchCity("essaouirra", candidates) // one extra letter, distance 1
	if !ok || got.CityID != 1 {
		t.Fatalf("MatchCity() = %+v, %v; want city 1", got, ok)
	}
}

func TestMatchCityNeverGuessesBeyondCeiling(t *testing.T) {
	t.Parallel()

	candidates := []CityCandidate{
		{CityID: 1, NormalizedName: "essaouira"},
	}

	_, ok := MatchCity("xyzabc", candidates)
	if ok {
		t.Fatalf("MatchCity() matched an unrelated string")
	}
}

func TestMatchCityEmptyQuery(t *testing.T) {
	t.Parallel()

	_, ok := MatchCity("", []CityCandidate{{CityID: 1, NormalizedName: "rabat"}})
	if ok {
		t.Fatalf("MatchCity() matched an empty query")
	}
}

func TestLevenshtein(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"essaouira", "essaouirra", 1},
	}

	for _, c := range cases {
		if got := Levenshtein(c.a, c.b); got != c.want {
			t.Fatalf("Levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
