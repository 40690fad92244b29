// Package classify maps a raw utterance to an intent tag.
package classify

import (
	"regexp"
	"strings"
)

// Type is the intent tag guiding prompt strategy selection.
type Type string

const (
	DestinationRecommendation Type = "destination_recommendation"
	Packing                   Type = "packing"
	Attractions               Type = "attractions"
	Weather                   Type = "weather"
	Budget                    Type = "budget"
	Food                      Type = "food"
	General                   Type = "general"
)

// The rules are evaluated in order and the first match wins. The ordering is
// a load-bearing contract: a phrase matching both "visit" and "pack" always
// classifies under the earlier rule.
var rules = []struct {
	tag     Type
	pattern *regexp.Regexp
}{
	{DestinationRecommendation, regexp.MustCompile(`where|destination|recommend|suggest|place|country|city|visit`)},
	{Packing, regexp.MustCompile(`pack|bring|luggage|suitcase|clothes|clothing|what to wear`)},
	{Attractions, regexp.MustCompile(`do|see|activity|activities|attraction|things|visit|experience`)},
	{Weather, regexp.MustCompile(`weather|climate|temperature|rain|season`)},
	{Budget, regexp.MustCompile(`budget|cost|price|expensive|cheap|afford`)},
	{Food, regexp.MustCompile(`food|restaurant|eat|cuisine|drink`)},
}

// Query classifies the utterance. It is a pure function: same input, same tag.
func Query(utterance string) Type {
	lower := strings.ToLower(utterance)
	for _, rule := range rules {
		if rule.pattern.MatchString(lower) {
			return rule.tag
		}
	}
	return General
}
