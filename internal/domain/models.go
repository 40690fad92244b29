package domain

import "time"

const AnonymousOwner = "anonymous"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Messages     []Message `json:"messages"`
	Context      Context   `json:"context"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Message is immutable once appended to a conversation.
type Message struct {
	ID        string       `json:"id"`
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
	Metadata  *MessageMeta `json:"metadata,omitempty"`
}

// MessageMeta carries per-turn annotations for assistant messages.
type MessageMeta struct {
	QueryType        string `json:"query_type,omitempty"`
	ExternalDataUsed bool   `json:"external_data_used,omitempty"`
}

// Context accumulates what we know about the user: explicit preferences
// supplied by the caller and signals mined from their utterances. The
// extracted lists are append-only and may contain near-duplicates.
type Context struct {
	Preferences map[string]string `json:"userPreferences"`
	Extracted   ExtractedInfo     `json:"extractedInfo"`
}

func NewContext() Context {
	return Context{Preferences: map[string]string{}}
}

type ExtractedInfo struct {
	Budget          string   `json:"budget,omitempty"`
	BudgetMentioned bool     `json:"budgetMentioned,omitempty"`
	Duration        string   `json:"duration,omitempty"`
	Destinations    []string `json:"destinations,omitempty"`
	TravelStyles    []string `json:"travelStyles,omitempty"`
	Interests       []string `json:"interests,omitempty"`
}

// HistoryEntry is the read-side projection of a message.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExternalData holds per-turn factual augmentation. It is never persisted.
// A nil field means the source was not fetched or the fetch failed, which is
// distinct from a fetched-but-empty report.
type ExternalData struct {
	Weather *WeatherReport `json:"weather,omitempty"`
	Country *CountryInfo   `json:"country,omitempty"`
}

// Sources lists the names of the sources actually present.
func (d ExternalData) Sources() []string {
	sources := []string{}
	if d.Weather != nil {
		sources = append(sources, "weather")
	}
	if d.Country != nil {
		sources = append(sources, "country")
	}
	return sources
}

func (d ExternalData) Empty() bool {
	return d.Weather == nil && d.Country == nil
}

type WeatherReport struct {
	TempC       int             `json:"temp"`
	FeelsLikeC  int             `json:"feels_like"`
	Description string          `json:"description"`
	Humidity    int             `json:"humidity"`
	WindSpeed   float64         `json:"wind_speed"`
	Icon        string          `json:"icon"`
	Location    string          `json:"location"`
	Country     string          `json:"country"`
	Forecast    []ForecastEntry `json:"forecast,omitempty"`
}

type ForecastEntry struct {
	Time          string `json:"time"`
	TempC         int    `json:"temp"`
	Description   string `json:"description"`
	Precipitation int    `json:"pop"` // probability of precipitation, percent
}

type CountryInfo struct {
	Name         string   `json:"name"`
	OfficialName string   `json:"official_name"`
	Capital      string   `json:"capital,omitempty"`
	Region       string   `json:"region"`
	Subregion    string   `json:"subregion,omitempty"`
	Population   int64    `json:"population"`
	Languages    []string `json:"languages"`
	Currency     string   `json:"currency,omitempty"`
	Timezones    []string `json:"timezones"`
	Continents   []string `json:"continents"`
	Borders      []string `json:"borders"`
}

// ConversationSummary is the owner-scoped listing projection.
type ConversationSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview,omitempty"`
}
