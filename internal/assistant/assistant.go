// Package assistant sequences one conversational turn: context enrichment,
// intent classification, external data gathering, prompt assembly, generation
// with retry, validation with a single corrective pass, and the final store
// commit.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/solenne/wayfarer/internal/classify"
	"github.com/solenne/wayfarer/internal/domain"
	"github.com/solenne/wayfarer/internal/external"
	"github.com/solenne/wayfarer/internal/llm"
	"github.com/solenne/wayfarer/internal/metrics"
	"github.com/solenne/wayfarer/internal/prompt"
	"github.com/solenne/wayfarer/internal/store"
	"github.com/solenne/wayfarer/shared/backoff"
)

var tracer = otel.GetTracerProvider().Tracer("internal/assistant")

// Generator is the generation backend as the orchestrator sees it.
type Generator interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (llm.Result, error)
	HealthCheck(ctx context.Context) llm.Health
	Model() string
}

// DataGateway fetches factual augmentation for a location.
type DataGateway interface {
	Weather(ctx context.Context, location string) (*domain.WeatherReport, error)
	Forecast(ctx context.Context, location string) ([]domain.ForecastEntry, error)
	Country(ctx context.Context, name string) (*domain.CountryInfo, error)
}

const locationUnknown = "unknown"

// generationAttempts bounds one generation call: 1 initial + 2 retries.
const generationAttempts = 3

type Service struct {
	store   *store.Store
	llm     Generator
	data    DataGateway
	retry   backoff.Strategy
	options llm.Options
	logger  *slog.Logger
}

type Option func(*Service)

// WithRetryStrategy overrides the generation retry schedule.
func WithRetryStrategy(s backoff.Strategy) Option {
	return func(svc *Service) {
		svc.retry = s
	}
}

func WithSamplingOptions(opts llm.Options) Option {
	return func(svc *Service) {
		svc.options = opts
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(svc *Service) {
		svc.logger = logger
	}
}

func New(st *store.Store, generator Generator, gateway DataGateway, opts ...Option) *Service {
	svc := &Service{
		store:  st,
		llm:    generator,
		data:   gateway,
		retry:  backoff.Linear(generationAttempts, time.Second),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type StartResult struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

// StartConversation creates a conversation and seeds it with the system
// instruction.
func (s *Service) StartConversation(ownerID string) StartResult {
	convID := s.store.Create(ownerID)
	if _, err := s.store.AppendMessage(convID, domain.RoleSystem, prompt.System, nil); err != nil {
		// Cannot happen for an ID we just created; log and carry on.
		s.logger.Error("seeding system message failed", "conversation", convID, "error", err)
	}

	return StartResult{
		ConversationID: convID,
		Message:        "New conversation started",
	}
}

// TurnResult is the structured outcome of one accepted turn.
type TurnResult struct {
	Response         string    `json:"response"`
	ConversationID   string    `json:"conversationId"`
	QueryType        string    `json:"queryType"`
	ExternalDataUsed []string  `json:"externalDataUsed"`
	Issues           []string  `json:"issues,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Chat runs the full turn pipeline. The user's message is durably recorded
// before generation begins and is not rolled back if generation fails.
func (s *Service) Chat(ctx context.Context, convID, userMessage string) (TurnResult, error) {
	ctx, span := tracer.Start(ctx, "assistant.chat")
	defer span.End()
	span.SetAttributes(attribute.String("conversation.id", convID))

	if strings.TrimSpace(userMessage) == "" {
		return TurnResult{}, domain.ErrInvalidInput
	}
	if _, ok := s.store.Get(convID); !ok {
		return TurnResult{}, domain.ErrNotFound
	}

	s.store.MergeExtractedContext(convID, userMessage)
	if _, err := s.store.AppendMessage(convID, domain.RoleUser, userMessage, nil); err != nil {
		return TurnResult{}, err
	}

	queryType := classify.Query(userMessage)
	span.SetAttributes(attribute.String("turn.query_type", string(queryType)))

	// Re-read after the merge so freshly extracted destinations are visible
	// to location resolution.
	conv, _ := s.store.Get(convID)

	needs := external.ShouldFetch(userMessage, queryType)
	data := s.gatherExternalData(ctx, userMessage, queryType, needs, conv)

	history := withoutSystem(s.store.FormattedHistory(convID))
	prior := history
	if len(prior) > 0 {
		prior = prior[:len(prior)-1] // exclude the current message
	}

	userPrompt := prompt.Build(userMessage, queryType, prompt.Inputs{
		History: prior,
		Data:    data,
		Profile: buildProfile(conv.Context),
	})

	response, err := s.generateWithRetry(ctx, convID, userPrompt)
	if err != nil {
		return TurnResult{}, err
	}

	validation := Validate(response, data)
	issues := validation.Issues
	if validation.ShouldRetry {
		s.logger.Info("response validation failed, retrying with recovery prompt",
			"conversation", convID, "issues", strings.Join(validation.Issues, "; "))
		metrics.RegenerationsTotal.Inc()

		recovery := prompt.Recovery(userMessage, response, validation.Issues)
		regenerated, err := s.generateWithRetry(ctx, convID, recovery)
		if err != nil {
			return TurnResult{}, err
		}
		// The corrective pass is used unconditionally; its own validation is
		// recorded but never triggers another round.
		response = regenerated
		issues = append(issues, Validate(regenerated, data).Issues...)
	}

	if _, err := s.store.AppendMessage(convID, domain.RoleAssistant, response, &domain.MessageMeta{
		QueryType:        string(queryType),
		ExternalDataUsed: !data.Empty(),
	}); err != nil {
		return TurnResult{}, err
	}

	return TurnResult{
		Response:         response,
		ConversationID:   convID,
		QueryType:        string(queryType),
		ExternalDataUsed: data.Sources(),
		Issues:           issues,
		Timestamp:        time.Now().UTC(),
	}, nil
}

// generateWithRetry performs one generation call under the retry contract:
// the prompt is unchanged across attempts and only backend unavailability is
// retried.
func (s *Service) generateWithRetry(ctx context.Context, convID, userPrompt string) (string, error) {
	messages := []llm.Message{{Role: domain.RoleSystem, Content: prompt.System}}
	for _, entry := range withoutSystem(s.store.FormattedHistory(convID)) {
		messages = append(messages, llm.Message{Role: entry.Role, Content: entry.Content})
	}
	messages = append(messages, llm.Message{Role: domain.RoleUser, Content: userPrompt})
	messages = collapseConsecutive(messages)

	var result llm.Result
	err := backoff.RetryWithCallback(ctx, s.retry,
		func(ctx context.Context, attempt int) error {
			var chatErr error
			result, chatErr = s.llm.Chat(ctx, messages, s.options)
			return chatErr
		},
		func(attempt int, err error, delay time.Duration) {
			s.logger.Warn("generation attempt failed",
				"conversation", convID, "attempt", attempt, "delay", delay, "error", err)
		})
	if err != nil {
		return "", err
	}

	return result.Content, nil
}

// collapseConsecutive drops immediately-adjacent entries with identical
// content before submission. Enforced here, not in the client.
func collapseConsecutive(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	var lastContent string
	for i, msg := range messages {
		if i > 0 && msg.Content == lastContent {
			continue
		}
		out = append(out, msg)
		lastContent = msg.Content
	}
	return out
}

// gatherExternalData resolves a location and fans out the independent
// lookups. Every failure here degrades to absent data.
func (s *Service) gatherExternalData(ctx context.Context, query string, queryType classify.Type, needs external.Needs, conv domain.Conversation) domain.ExternalData {
	var data domain.ExternalData
	if !needs.Any() {
		return data
	}

	location := s.resolveLocation(ctx, query, conv)
	if location == "" {
		return data
	}

	var wg sync.WaitGroup
	if needs.Weather {
		wg.Add(1)
		go func() {
			defer wg.Done()
			weather, err := s.data.Weather(ctx, location)
			if err != nil {
				s.logger.Warn("weather lookup failed", "location", location, "error", err)
				return
			}
			if queryType == classify.Packing {
				if forecast, err := s.data.Forecast(ctx, location); err == nil {
					weather.Forecast = forecast
				} else {
					s.logger.Warn("forecast lookup failed", "location", location, "error", err)
				}
			}
			data.Weather = weather
		}()
	}
	if needs.Country {
		wg.Add(1)
		go func() {
			defer wg.Done()
			country, err := s.data.Country(ctx, location)
			if err != nil {
				s.logger.Warn("country lookup failed", "location", location, "error", err)
				return
			}
			data.Country = country
		}()
	}
	wg.Wait()

	return data
}

// resolveLocation tries the cheap heuristics first: patterns in the query,
// then the most recently extracted destination. Only then is a dedicated
// single-shot generation call spent, and its failure means "no location",
// never a turn failure.
func (s *Service) resolveLocation(ctx context.Context, query string, conv domain.Conversation) string {
	if location := external.ExtractLocation(query); location != "" {
		return location
	}
	if destinations := conv.Context.Extracted.Destinations; len(destinations) > 0 {
		return destinations[len(destinations)-1]
	}

	result, err := s.llm.Chat(ctx, []llm.Message{
		{Role: domain.RoleUser, Content: prompt.ResolveLocation(query)},
	}, s.options)
	if err != nil {
		s.logger.Warn("location resolution call failed", "error", err)
		return ""
	}

	location := strings.TrimSpace(strings.Trim(strings.TrimSpace(result.Content), ".\"'"))
	if location == "" || strings.EqualFold(location, locationUnknown) {
		return ""
	}
	return location
}

type HistoryResult struct {
	ConversationID string           `json:"conversationId"`
	Messages       []domain.Message `json:"messages"`
	Context        domain.Context   `json:"context"`
	CreatedAt      time.Time        `json:"createdAt"`
	LastActivity   time.Time        `json:"lastActivity"`
}

// History returns the conversation without its system messages.
func (s *Service) History(convID string) (HistoryResult, error) {
	conv, ok := s.store.Get(convID)
	if !ok {
		return HistoryResult{}, domain.ErrNotFound
	}

	visible := make([]domain.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		if m.Role != domain.RoleSystem {
			visible = append(visible, m)
		}
	}

	return HistoryResult{
		ConversationID: conv.ID,
		Messages:       visible,
		Context:        conv.Context,
		CreatedAt:      conv.CreatedAt,
		LastActivity:   conv.LastActivity,
	}, nil
}

// Reset clears non-system messages and empties the accumulated context.
func (s *Service) Reset(convID string) error {
	return s.store.Reset(convID)
}

// Delete reports whether the conversation existed.
func (s *Service) Delete(convID string) bool {
	return s.store.Delete(convID)
}

// ListConversations returns the owner's conversation summaries.
func (s *Service) ListConversations(ownerID string) []domain.ConversationSummary {
	if ownerID == "" {
		ownerID = domain.AnonymousOwner
	}
	return s.store.ListByOwner(ownerID)
}

type HealthStatus struct {
	LLM           llm.Health  `json:"llm"`
	Conversations store.Stats `json:"conversations"`
	Timestamp     time.Time   `json:"timestamp"`
}

// Health aggregates backend reachability and store statistics.
func (s *Service) Health(ctx context.Context) HealthStatus {
	return HealthStatus{
		LLM:           s.llm.HealthCheck(ctx),
		Conversations: s.store.Stats(),
		Timestamp:     time.Now().UTC(),
	}
}

func withoutSystem(history []domain.HistoryEntry) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, len(history))
	for _, entry := range history {
		if entry.Role != domain.RoleSystem {
			out = append(out, entry)
		}
	}
	return out
}

// buildProfile overlays explicit preferences on extracted signals; explicit
// values win.
func buildProfile(c domain.Context) prompt.Profile {
	extracted := c.Extracted

	p := prompt.Profile{
		Budget:               extracted.Budget,
		Duration:             extracted.Duration,
		TravelStyle:          strings.Join(extracted.TravelStyles, ", "),
		Interests:            strings.Join(extracted.Interests, ", "),
		PreviousDestinations: strings.Join(extracted.Destinations, ", "),
	}
	if p.Budget == "" && extracted.BudgetMentioned {
		p.Budget = "mentioned, amount unspecified"
	}
	if len(extracted.Destinations) > 0 {
		p.Destination = extracted.Destinations[len(extracted.Destinations)-1]
	}

	if v, ok := c.Preferences["budget"]; ok {
		p.Budget = v
	}
	if v, ok := c.Preferences["travelStyle"]; ok {
		p.TravelStyle = v
	}
	if v, ok := c.Preferences["season"]; ok {
		p.Season = v
	}
	if v, ok := c.Preferences["interests"]; ok {
		p.Interests = v
	}
	if v, ok := c.Preferences["destination"]; ok {
		p.Destination = v
	}
	if v, ok := c.Preferences["duration"]; ok {
		p.Duration = v
	}
	if v, ok := c.Preferences["activities"]; ok {
		p.Activities = v
	}

	return p
}
