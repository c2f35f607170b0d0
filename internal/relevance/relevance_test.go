package relevance

import "testing"

func TestIsRelevant(t *testing.T) {
	f := New("San Jose", []string{"project", "housing"}, false)

	tests := []struct {
		name  string
		title string
		text  string
		want  bool
	}{
		{"city and keyword", "New housing project", "Approved in San Jose yesterday.", true},
		{"city in title keyword in text", "San Jose council meets", "The housing plan moves forward.", true},
		{"keyword but no city", "New housing project", "Approved in Oakland yesterday.", false},
		{"city but no keyword", "San Jose weather report", "Sunny all week.", false},
		{"case-insensitive city", "SAN JOSE breaks ground", "A new PROJECT begins.", true},
		{"empty inputs", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IsRelevant(tt.title, tt.text); got != tt.want {
				t.Errorf("IsRelevant(%q, %q) = %v, want %v", tt.title, tt.text, got, tt.want)
			}
		})
	}
}

func TestIsRelevantDeterministic(t *testing.T) {
	f := New("San Jose", []string{"project"}, false)
	first := f.IsRelevant("San Jose project", "text")
	for i := 0; i < 10; i++ {
		if f.IsRelevant("San Jose project", "text") != first {
			t.Fatal("expected identical results for identical inputs")
		}
	}
}

func TestDebugOverridePassesEverything(t *testing.T) {
	f := New("San Jose", []string{"project"}, true)
	if !f.IsRelevant("Totally unrelated", "Nothing to see here.") {
		t.Error("expected debug mode to pass everything through")
	}
	if !f.IsRelevant("", "") {
		t.Error("expected debug mode to pass empty input")
	}
}

func TestContainsKeywords(t *testing.T) {
	if !ContainsKeywords("The council APPROVED the budget", []string{"approved"}) {
		t.Error("expected case-insensitive keyword match")
	}
	if ContainsKeywords("nothing relevant", []string{"housing", "transit"}) {
		t.Error("expected no match")
	}
	if ContainsKeywords("anything", nil) {
		t.Error("expected no match against empty keyword set")
	}
}
