package assistant

import (
	"regexp"
	"strings"

	"github.com/solenne/wayfarer/internal/domain"
)

// Validation is the outcome of the fast local response checks.
type Validation struct {
	OK          bool
	ShouldRetry bool
	Issues      []string
}

const minResponseLength = 50

var metaCommentaryMarkers = []string{"your question", "you asked"}

// Advisory only: these flag likely hallucinated framing but never force a
// regeneration.
var hallucinationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)according to my database`),
	regexp.MustCompile(`(?i)as of my last update`),
	regexp.MustCompile(`(?i)I have access to`),
}

// Validate applies the disqualifying rules in order; the first hit requests
// a single corrective regeneration and short-circuits. If none fire, a
// second pass appends advisory issues without requesting a retry.
func Validate(response string, data domain.ExternalData) Validation {
	v := Validation{OK: true}

	if len(response) < minResponseLength {
		v.OK = false
		v.ShouldRetry = true
		v.Issues = append(v.Issues, "Response too short")
		return v
	}

	lower := strings.ToLower(response)
	for _, marker := range metaCommentaryMarkers {
		if strings.Contains(lower, marker) {
			v.OK = false
			v.ShouldRetry = true
			v.Issues = append(v.Issues, "Response is meta-commentary")
			return v
		}
	}

	for _, pattern := range hallucinationPatterns {
		if pattern.MatchString(response) {
			v.Issues = append(v.Issues, "Potential hallucination pattern detected")
		}
	}

	return v
}
