package scoring

import "testing"

func TestClassifyAnswer(t *testing.T) {
	tests := []struct {
		name      string
		submitted string
		correct   string
		alts      []string
		wantType  MatchType
	}{
		{"identical", "Paris", "Paris", nil, MatchExact},
		{"case and punctuation", "paris!", "Paris", nil, MatchExact},
		{"leading article", "The Eiffel Tower", "Eiffel Tower", nil, MatchExact},
		{"transcription typo", "Mississipi", "Mississippi", nil, MatchFuzzy},
		{"answer embedded in sentence", "I think it is Paris", "Paris", nil, MatchPartial},
		{"alternate answer", "NYC", "New York City", []string{"NYC", "New York"}, MatchExact},
		{"wrong answer", "London", "Paris", nil, MatchNone},
		{"empty submission", "", "Paris", nil, MatchNone},
		{"close but not fuzzy", "Madrid", "Marseille", nil, MatchNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyAnswer(tc.submitted, tc.correct, tc.alts)
			if got.Type != tc.wantType {
				t.Errorf("ClassifyAnswer(%q, %q) = %s (sim %.2f), want %s", tc.submitted, tc.correct, got.Type, got.Similarity, tc.wantType)
			}
			if got.Similarity < 0 || got.Similarity > 1 {
				t.Errorf("similarity %.2f outside [0,1]", got.Similarity)
			}
		})
	}
}

func TestExactMatchHasFullSimilarity(t *testing.T) {
	got := ClassifyAnswer("Jupiter", "jupiter", nil)
	if got.Type != MatchExact || got.Similarity != 1 {
		t.Errorf("got %s/%.2f, want exact/1.00", got.Type, got.Similarity)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"paris", "paris", 0},
	}

	for _, tc := range tests {
		if got := levenshtein([]rune(tc.a), []rune(tc.b)); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  The  Great Wall! ", "great wall"},
		{"A capybara", "capybara"},
		{"an apple", "apple"},
		{"the", "the"}, // a lone article is the whole answer
		{"42.", "42"},
	}

	for _, tc := range tests {
		if got := normalizeAnswer(tc.in); got != tc.want {
			t.Errorf("normalizeAnswer(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
