// Package prompt builds the text sent to the generation backend. Every
// strategy is a deterministic pure function of its inputs; none performs I/O.
// The system instruction is prepended at generation time, never inside a
// strategy's own output.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/solenne/wayfarer/internal/classify"
	"github.com/solenne/wayfarer/internal/domain"
)

// Profile is the flattened view of a conversation's accumulated context:
// explicit preferences overlaid on heuristically extracted signals.
type Profile struct {
	Budget               string
	TravelStyle          string
	Season               string
	Interests            string
	PreviousDestinations string
	Destination          string
	Duration             string
	Activities           string
}

// Inputs carries everything a strategy may consume.
type Inputs struct {
	History []domain.HistoryEntry // prior turns, system excluded, current message excluded
	Data    domain.ExternalData
	Profile Profile
}

// Build selects a strategy for the query and renders the prompt text.
//
// Follow-up conversations take precedence over intent-specific strategies;
// a follow-up with external data upgrades to the data-augmented strategy.
// First-turn queries use the dedicated strategy for their tag, and everything
// else passes through unmodified unless external data is present.
func Build(query string, tag classify.Type, in Inputs) string {
	if len(in.History) > 0 {
		if !in.Data.Empty() {
			return DataAugmented(query, in.Data)
		}
		return FollowUp(in.History, query)
	}

	switch tag {
	case classify.DestinationRecommendation:
		return DestinationRecommendation(query, in.Profile)
	case classify.Packing:
		return Packing(in.Profile.Destination, in.Profile.Duration, in.Profile.Activities, in.Data.Weather)
	case classify.Attractions:
		return Attractions(in.Profile.Destination, in.Profile.Interests, in.Data.Country)
	default:
		if !in.Data.Empty() {
			return DataAugmented(query, in.Data)
		}
		return query
	}
}

// DestinationRecommendation walks the model through a step-by-step
// recommendation before asking for the conversational answer.
func DestinationRecommendation(query string, p Profile) string {
	return fmt.Sprintf(`Let's think through the best destination recommendation step by step:

USER QUERY: %q

STEP 1 - ANALYZE USER PREFERENCES:
First, identify what the user is looking for:
- Budget level: %s
- Travel style: %s
- Season/timing: %s
- Interests: %s
- Previously discussed: %s

STEP 2 - CONSIDER FACTORS:
Think about these factors:
- Climate and weather during their travel period
- Cultural events and peak/off-peak seasons
- Budget alignment with destination costs
- Safety and accessibility
- Unique experiences matching their interests

STEP 3 - GENERATE OPTIONS:
Come up with 2-3 destination options that match their criteria, considering variety in:
- Geographic diversity
- Experience type (adventure, relaxation, culture, etc.)
- Budget range

STEP 4 - PROVIDE RECOMMENDATION:
Present your recommendations with:
- Clear reasoning for each suggestion
- Specific highlights that match their interests
- Practical considerations (best time, budget estimate, tips)

Now provide your recommendations in a natural, conversational way:`,
		query,
		orUnspecified(p.Budget),
		orUnspecified(p.TravelStyle),
		orUnspecified(p.Season),
		orDefault(p.Interests, "to be determined from query"),
		orDefault(p.PreviousDestinations, "none"),
	)
}

// Packing produces a constraint-based packing list request, folding in the
// current weather when available.
func Packing(destination, duration, activities string, weather *domain.WeatherReport) string {
	var weatherContext string
	if weather != nil {
		forecast := "similar conditions"
		if len(weather.Forecast) > 0 {
			forecast = summarizeForecast(weather.Forecast)
		}
		weatherContext = fmt.Sprintf(`
CURRENT WEATHER DATA:
- Temperature: %d°C
- Conditions: %s
- Humidity: %d%%
- Expected weather: %s
`, weather.TempC, weather.Description, weather.Humidity, forecast)
	}

	return fmt.Sprintf(`Create a comprehensive packing list for a trip with these details:

TRIP DETAILS:
- Destination: %s
- Duration: %s
- Planned activities: %s
%s
PACKING CATEGORIES TO CONSIDER:
1. Clothing (weather-appropriate, layering, activity-specific)
2. Essentials (documents, money, electronics)
3. Toiletries and health (medications, sun protection, first aid)
4. Activity-specific gear
5. Optional but recommended items

APPROACH:
- Prioritize versatile items that can be mixed and matched
- Consider the local culture and dress codes
- Balance between packing light and being prepared
- Include quantities where relevant
- Flag items that can be purchased at destination vs must-bring

Provide the packing list in a clear, organized format with brief explanations for non-obvious items.`,
		orUnspecified(destination), orUnspecified(duration), orUnspecified(activities), weatherContext)
}

// Attractions asks for a curated set of activities, personalized by interests
// and grounded in country facts when available.
func Attractions(destination, interests string, country *domain.CountryInfo) string {
	var countryContext string
	if country != nil {
		countryContext = fmt.Sprintf(`
DESTINATION CONTEXT:
- Capital: %s
- Languages: %s
- Currency: %s
- Region: %s
`, country.Capital, strings.Join(country.Languages, ", "), country.Currency, country.Region)
	}

	return fmt.Sprintf(`Recommend local attractions and activities for:

DESTINATION: %s
USER INTERESTS: %s
%s
RECOMMENDATION CRITERIA:
1. Mix of popular must-sees and hidden gems
2. Variety of experience types (cultural, nature, food, adventure)
3. Consider different budget levels
4. Include practical info: typical duration, best time to visit, booking tips
5. Suggest a logical order or grouping (by area, by day, etc.)

STRUCTURE YOUR RESPONSE:
- Group attractions by type or area
- For each suggestion, explain why it matches their interests
- Include 1-2 insider tips
- Mention any seasonal considerations
- Suggest approximate time needed

Provide 5-7 well-chosen recommendations rather than an exhaustive list.`,
		orUnspecified(destination), orUnspecified(interests), countryContext)
}

const followUpWindow = 4
const followUpSnippet = 200

// FollowUp keeps the conversation coherent by replaying a trailing window of
// truncated history ahead of the new query.
func FollowUp(history []domain.HistoryEntry, query string) string {
	window := history
	if len(window) > followUpWindow {
		window = window[len(window)-followUpWindow:]
	}

	lines := make([]string, 0, len(window))
	for _, entry := range window {
		content := entry.Content
		if len(content) > followUpSnippet {
			content = content[:followUpSnippet]
		}
		lines = append(lines, fmt.Sprintf("%s: %s...", entry.Role, content))
	}

	return fmt.Sprintf(`CONVERSATION CONTEXT:
%s

NEW USER QUERY: %q

INSTRUCTIONS:
- Reference relevant information from the conversation history
- Build upon previous recommendations naturally
- If the query is unrelated to previous context, it's okay to shift topics smoothly
- Maintain the same helpful, conversational tone
- If the user is asking for clarification or more details, focus your response specifically on that aspect

Respond to the user's query:`, strings.Join(lines, "\n"), query)
}

// DataAugmented blends fetched facts with the model's own knowledge.
func DataAugmented(query string, data domain.ExternalData) string {
	var sections []string
	if data.Weather != nil {
		sections = append(sections, "WEATHER: "+mustJSON(data.Weather))
	}
	if data.Country != nil {
		sections = append(sections, "COUNTRY: "+mustJSON(data.Country))
	}

	return fmt.Sprintf(`Answer the user's query using both your knowledge and the provided real-time data.

USER QUERY: %q

REAL-TIME DATA:
%s

INSTRUCTIONS:
- Blend the external data naturally into your response
- Use the data to provide specific, current information
- Supplement the data with your general knowledge about the destination
- If data is missing or limited, acknowledge it and provide general guidance
- Make your response conversational, not a data dump

Provide your response:`, query, strings.Join(sections, "\n\n"))
}

// Recovery is the single corrective-regeneration prompt: original question,
// the problematic reply and what the validator objected to.
func Recovery(originalQuery, problematicResponse string, issues []string) string {
	issueList := "No response"
	if problematicResponse != "" {
		issueList = strings.Join(issues, "; ")
		if issueList == "" {
			issueList = "Too vague or off-topic"
		}
	}

	return fmt.Sprintf(`The previous response was unclear or incomplete. Let's try again with more focus.

ORIGINAL USER QUESTION: %q

PREVIOUS RESPONSE HAD ISSUES: %s

Please provide a clear, focused answer that:
1. Directly addresses the user's question
2. Gives specific, actionable information
3. Stays on topic
4. Admits uncertainty if you don't have reliable information

Provide your improved response:`, originalQuery, issueList)
}

// ResolveLocation asks for nothing but a location name, or the "unknown"
// sentinel when none can be determined.
func ResolveLocation(query string) string {
	return fmt.Sprintf(`Identify the single travel location (city or country) the following message refers to.

MESSAGE: %q

Reply with only the location name. If no location can be determined, reply with exactly: unknown`, query)
}

func summarizeForecast(entries []domain.ForecastEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s %d°C %s", e.Time, e.TempC, e.Description))
	}
	return strings.Join(parts, "; ")
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

func orUnspecified(s string) string {
	return orDefault(s, "not specified")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
