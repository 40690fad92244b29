package classify

import "testing"

func TestQuery(t *testing.T) {
	tests := []struct {
		utterance string
		want      Type
	}{
		{"Where should I go in March?", DestinationRecommendation},
		{"Can you recommend a city?", DestinationRecommendation},
		{"What should I pack for Rome?", Packing},
		{"what to wear in Iceland", Packing},
		{"What are the top attractions?", Attractions},
		{"any fun activities nearby", Attractions},
		{"How is the weather in Lisbon?", Weather},
		{"is it rainy there", Weather},
		{"Is Tokyo expensive?", Budget},
		{"is that affordable for a student", Budget},
		{"best restaurants in Rome", Food},
		{"local cuisine worth trying", Food},
		{"hello", General},
		{"", General},
	}

	for _, tt := range tests {
		if got := Query(tt.utterance); got != tt.want {
			t.Errorf("Query(%q) = %v, want %v", tt.utterance, got, tt.want)
		}
	}
}

// Earlier rules win when an utterance matches several.
func TestQueryRulePrecedence(t *testing.T) {
	tests := []struct {
		utterance string
		want      Type
	}{
		// "visit" appears in both the destination and attractions rules.
		{"places to visit and things to see", DestinationRecommendation},
		// "pack" beats "weather".
		{"what should I pack for this weather", Packing},
		// "weather" beats "cheap".
		{"rainy season is cheaper", Weather},
	}

	for _, tt := range tests {
		if got := Query(tt.utterance); got != tt.want {
			t.Errorf("Query(%q) = %v, want %v", tt.utterance, got, tt.want)
		}
	}
}

func TestQueryIsCaseInsensitive(t *testing.T) {
	if got := Query("WHERE SHOULD I GO"); got != DestinationRecommendation {
		t.Errorf("Query uppercase = %v, want %v", got, DestinationRecommendation)
	}
}
