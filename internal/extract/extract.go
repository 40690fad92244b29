// Package extract mines user utterances for travel signals. The rules are
// deliberately heuristic: independent, non-exclusive, lossy and order
// sensitive. They feed prompt construction, not a real NLU layer.
package extract

import (
	"regexp"
	"strings"

	"github.com/solenne/wayfarer/internal/domain"
)

var (
	budgetCue      = regexp.MustCompile(`budget|afford|spend|\$`)
	amountCurrency = regexp.MustCompile(`(\d+)\s*(?:dollars?|\$|usd|euro|eur)`)
	currencyAmount = regexp.MustCompile(`(?:\$|usd|euro|eur)\s*(\d+)`)
	duration       = regexp.MustCompile(`(\d+)\s*(?:day|week|month|night)`)

	// A run of capitalized words followed by a trailing anchor word or a
	// sentence boundary. Greedy enough to swallow stray capitalized words;
	// that is accepted noise.
	destination = regexp.MustCompile(`\b([A-Z][a-zA-Z]*(?:\s+[A-Z][a-zA-Z]*)*?)(?:\s+(?:weather|trip|visit|in|to)\b|[.,]|$)`)
)

var travelStyles = []string{
	"adventure", "relaxation", "luxury", "budget", "backpack", "family", "solo", "romantic",
}

var interests = []string{
	"culture", "history", "food", "nature", "beach", "mountain",
	"city", "nightlife", "shopping", "art", "architecture",
}

// Apply runs every rule against the utterance and folds the results into
// info. Matches accumulate across calls; nothing is deduplicated.
func Apply(info *domain.ExtractedInfo, utterance string) {
	lower := strings.ToLower(utterance)

	if budgetCue.MatchString(lower) {
		if m := amountCurrency.FindStringSubmatch(lower); m != nil {
			info.Budget = m[1]
		} else if m := currencyAmount.FindStringSubmatch(lower); m != nil {
			info.Budget = m[1]
		} else if strings.Contains(lower, "budget") {
			info.BudgetMentioned = true
		}
	}

	if m := duration.FindString(lower); m != "" {
		info.Duration = m
	}

	if m := destination.FindStringSubmatch(utterance); m != nil {
		if dest := strings.TrimSpace(m[1]); dest != "" {
			info.Destinations = append(info.Destinations, dest)
		}
	}

	for _, style := range travelStyles {
		if strings.Contains(lower, style) {
			info.TravelStyles = append(info.TravelStyles, style)
		}
	}

	for _, interest := range interests {
		if strings.Contains(lower, interest) {
			info.Interests = append(info.Interests, interest)
		}
	}
}
