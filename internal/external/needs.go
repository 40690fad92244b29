package external

import (
	"regexp"
	"strings"

	"github.com/solenne/wayfarer/internal/classify"
)

// Needs flags which data sources a query calls for.
type Needs struct {
	Weather bool
	Country bool
}

func (n Needs) Any() bool { return n.Weather || n.Country }

// ShouldFetch decides what to look up based on the intent tag and keyword
// cues in the raw query.
func ShouldFetch(query string, tag classify.Type) Needs {
	lower := strings.ToLower(query)

	return Needs{
		Weather: tag == classify.Weather ||
			tag == classify.Packing ||
			strings.Contains(lower, "weather") ||
			strings.Contains(lower, "climate") ||
			strings.Contains(lower, "temperature"),

		Country: tag == classify.DestinationRecommendation ||
			tag == classify.Attractions ||
			strings.Contains(lower, "country") ||
			strings.Contains(lower, "capital") ||
			strings.Contains(lower, "currency") ||
			strings.Contains(lower, "language"),
	}
}

// Location patterns: "in Paris", "to Tokyo", "visit Rome", "Paris weather",
// "for Kyoto trip". Heuristic by design; the orchestrator falls back to a
// generation call when none of these fire.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:in|to|visit|visiting|going to|traveling to|at)\s+([A-Z][a-zA-Z\s]+?)(?:\s|,|\.|\?|$)`),
	regexp.MustCompile(`\b([A-Z][a-zA-Z\s]+?)(?:\s+weather|\s+climate)`),
	regexp.MustCompile(`\bfor\s+([A-Z][a-zA-Z\s]+?)(?:\s+trip|\s+vacation)`),
}

// ExtractLocation pulls a location name out of the query, or returns ""
// when nothing matches.
func ExtractLocation(query string) string {
	for _, pattern := range locationPatterns {
		if m := pattern.FindStringSubmatch(query); m != nil && m[1] != "" {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
