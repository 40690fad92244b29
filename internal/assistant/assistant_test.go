package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solenne/wayfarer/internal/domain"
	"github.com/solenne/wayfarer/internal/llm"
	"github.com/solenne/wayfarer/internal/store"
	"github.com/solenne/wayfarer/shared/backoff"
)

const validResponse = "Lisbon is a great pick in September: warm evenings, affordable food, and easy day trips to Sintra."

type fakeGenerator struct {
	mu      sync.Mutex
	calls   [][]llm.Message
	respond func(call int, messages []llm.Message) (llm.Result, error)
	health  llm.Health
}

func (f *fakeGenerator) Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (llm.Result, error) {
	f.mu.Lock()
	copied := append([]llm.Message(nil), messages...)
	f.calls = append(f.calls, copied)
	call := len(f.calls)
	f.mu.Unlock()
	return f.respond(call, copied)
}

func (f *fakeGenerator) HealthCheck(ctx context.Context) llm.Health { return f.health }

func (f *fakeGenerator) Model() string { return "fake-model" }

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGenerator) call(n int) []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[n]
}

func alwaysRespond(content string) func(int, []llm.Message) (llm.Result, error) {
	return func(int, []llm.Message) (llm.Result, error) {
		return llm.Result{Content: content}, nil
	}
}

type fakeGateway struct {
	mu            sync.Mutex
	weatherCalls  []string
	forecastCalls []string
	countryCalls  []string

	weatherErr error
	countryErr error
}

func (f *fakeGateway) Weather(ctx context.Context, location string) (*domain.WeatherReport, error) {
	f.mu.Lock()
	f.weatherCalls = append(f.weatherCalls, location)
	f.mu.Unlock()
	if f.weatherErr != nil {
		return nil, f.weatherErr
	}
	return &domain.WeatherReport{TempC: 21, Description: "clear sky", Location: location}, nil
}

func (f *fakeGateway) Forecast(ctx context.Context, location string) ([]domain.ForecastEntry, error) {
	f.mu.Lock()
	f.forecastCalls = append(f.forecastCalls, location)
	f.mu.Unlock()
	return []domain.ForecastEntry{{Time: "2026-09-02 09:00", TempC: 19, Description: "few clouds"}}, nil
}

func (f *fakeGateway) Country(ctx context.Context, name string) (*domain.CountryInfo, error) {
	f.mu.Lock()
	f.countryCalls = append(f.countryCalls, name)
	f.mu.Unlock()
	if f.countryErr != nil {
		return nil, f.countryErr
	}
	return &domain.CountryInfo{Name: name, Capital: "Capital City", Region: "Europe"}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nilWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestService(gen *fakeGenerator, gw *fakeGateway) (*Service, *store.Store) {
	st := store.New()
	svc := New(st, gen, gw,
		WithRetryStrategy(backoff.Linear(generationAttempts, time.Millisecond)),
		WithLogger(quietLogger()))
	return svc, st
}

func TestStartConversationSeedsSystemMessage(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	svc, st := newTestService(gen, &fakeGateway{})

	result := svc.StartConversation("")
	require.NotEmpty(t, result.ConversationID)
	assert.Equal(t, "New conversation started", result.Message)

	conv, ok := st.Get(result.ConversationID)
	require.True(t, ok)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, domain.RoleSystem, conv.Messages[0].Role)
}

func TestChatRejectsBlankMessage(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	svc, _ := newTestService(gen, &fakeGateway{})
	convID := svc.StartConversation("").ConversationID

	_, err := svc.Chat(context.Background(), convID, "   \t\n")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, gen.callCount())
}

func TestChatUnknownConversation(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	svc, _ := newTestService(gen, &fakeGateway{})

	_, err := svc.Chat(context.Background(), "conv_missing", "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatHappyPath(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	svc, st := newTestService(gen, &fakeGateway{})
	convID := svc.StartConversation("").ConversationID

	result, err := svc.Chat(context.Background(), convID, "hello friend")
	require.NoError(t, err)
	assert.Equal(t, validResponse, result.Response)
	assert.Equal(t, "general", result.QueryType)
	assert.Empty(t, result.ExternalDataUsed)
	assert.Empty(t, result.Issues)

	conv, _ := st.Get(convID)
	require.Len(t, conv.Messages, 3) // system, user, assistant
	assert.Equal(t, "hello friend", conv.Messages[1].Content)

	last := conv.Messages[2]
	assert.Equal(t, domain.RoleAssistant, last.Role)
	require.NotNil(t, last.Metadata)
	assert.Equal(t, "general", last.Metadata.QueryType)
	assert.False(t, last.Metadata.ExternalDataUsed)
}

func TestChatRetriesAreBounded(t *testing.T) {
	gen := &fakeGenerator{respond: func(int, []llm.Message) (llm.Result, error) {
		return llm.Result{}, domain.ErrGenerationUnavailable
	}}
	svc, st := newTestService(gen, &fakeGateway{})
	convID := svc.StartConversation("").ConversationID

	_, err := svc.Chat(context.Background(), convID, "hello friend")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	assert.Equal(t, generationAttempts, gen.callCount())

	// The user message stays recorded even though the turn failed.
	conv, _ := st.Get(convID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "hello friend", conv.Messages[1].Content)
	assert.Equal(t, domain.RoleUser, conv.Messages[1].Role)
}

func TestChatRetrySucceedsEventually(t *testing.T) {
	gen := &fakeGenerator{respond: func(call int, _ []llm.Message) (llm.Result, error) {
		if call < 3 {
			return llm.Result{}, domain.ErrGenerationUnavailable
		}
		return llm.Result{Content: validResponse}, nil
	}}
	svc, _ := newTestService(gen, &fakeGateway{})
	convID := svc.StartConversation("").ConversationID

	result, err := svc.Chat(context.Background(), convID, "hello friend")
	require.NoError(t, err)
	assert.Equal(t, validResponse, result.Response)
	assert.Equal(t, 3, gen.callCount())
}

func TestChatCollapsesDuplicatePromptIntoHistory(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	svc, _ := newTestService(gen, &fakeGateway{})
	convID := svc.StartConversation("").ConversationID

	// A general first-turn query passes through unmodified, so the prompt
	// duplicates the just-recorded user message.
	_, err := svc.Chat(context.Background(), convID, "hello friend")
	require.NoError(t, err)

	require.Equal(t, 1, gen.callCount())
	messages := gen.call(0)
	require.Len(t, messages, 2) // system + the single collapsed user entry
	for i := 1; i < len(messages); i++ {
		assert.NotEqual(t, messages[i-1].Content, messages[i].Content,
			"adjacent duplicate submitted at index %d", i)
	}
}

func TestChatCorrectiveRegeneration(t *testing.T) {
	gen := &fakeGenerator{respond: func(call int, _ []llm.Message) (llm.Result, error) {
		if call == 1 {
			return llm.Result{Content: "too short"}, nil
		}
		return llm.Result{Content: validResponse}, nil
	}}
	svc, _ := newTestService(gen, &fakeGateway{})
	convID := svc.StartConversation("").ConversationID

	result, err := svc.Chat(context.Background(), convID, "hello friend")
	require.NoError(t, err)

	require.Equal(t, 2, gen.callCount())
	assert.Equal(t, validResponse, result.Response)
	assert.Contains(t, result.Issues, "Response too short")

	second := gen.call(1)
	recovery := second[len(second)-1].Content
	assert.Contains(t, recovery, "PREVIOUS RESPONSE HAD ISSUES")
	assert.Contains(t, recovery, `"hello friend"`)
}

func TestChatCorrectivePassUsedUnconditionally(t *testing.T) {
	gen := &fakeGenerator{respond: func(call int, _ []llm.Message) (llm.Result, error) {
		return llm.Result{Content: "still bad"}, nil
	}}
	svc, _ := newTestService(gen, &fakeGateway{})
	convID := svc.StartConversation("").ConversationID

	result, err := svc.Chat(context.Background(), convID, "hello friend")
	require.NoError(t, err)

	// One corrective round and no more, however the second attempt turns out.
	assert.Equal(t, 2, gen.callCount())
	assert.Equal(t, "still bad", result.Response)
	assert.Equal(t, []string{"Response too short", "Response too short"}, result.Issues)
}

func TestChatExternalFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	gw := &fakeGateway{weatherErr: errors.New("upstream down")}
	svc, _ := newTestService(gen, gw)
	convID := svc.StartConversation("").ConversationID

	result, err := svc.Chat(context.Background(), convID, "How is the weather in Paris?")
	require.NoError(t, err)
	assert.Equal(t, validResponse, result.Response)
	assert.Empty(t, result.ExternalDataUsed)
	assert.Equal(t, []string{"Paris"}, gw.weatherCalls)
}

func TestChatWeatherAugmentation(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	gw := &fakeGateway{}
	svc, _ := newTestService(gen, gw)
	convID := svc.StartConversation("").ConversationID

	result, err := svc.Chat(context.Background(), convID, "How is the weather in Paris?")
	require.NoError(t, err)
	assert.Equal(t, []string{"weather"}, result.ExternalDataUsed)
	assert.Empty(t, gw.forecastCalls, "forecast is reserved for packing queries")

	messages := gen.call(0)
	prompt := messages[len(messages)-1].Content
	assert.Contains(t, prompt, "REAL-TIME DATA")
	assert.Contains(t, prompt, "clear sky")
}

func TestChatPackingFetchesForecast(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	gw := &fakeGateway{}
	svc, _ := newTestService(gen, gw)
	convID := svc.StartConversation("").ConversationID

	_, err := svc.Chat(context.Background(), convID, "What should I pack for Paris trip?")
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris"}, gw.weatherCalls)
	assert.Equal(t, []string{"Paris"}, gw.forecastCalls)

	messages := gen.call(0)
	prompt := messages[len(messages)-1].Content
	assert.Contains(t, prompt, "Destination: Paris")
	assert.Contains(t, prompt, "2026-09-02 09:00 19°C few clouds")
}

func TestChatLocationResolutionFallsBackToGeneration(t *testing.T) {
	gen := &fakeGenerator{respond: func(_ int, messages []llm.Message) (llm.Result, error) {
		last := messages[len(messages)-1].Content
		if strings.Contains(last, "Reply with only the location name") {
			return llm.Result{Content: "unknown"}, nil
		}
		return llm.Result{Content: validResponse}, nil
	}}
	gw := &fakeGateway{}
	svc, _ := newTestService(gen, gw)
	convID := svc.StartConversation("").ConversationID

	result, err := svc.Chat(context.Background(), convID, "What about the temperature over there?")
	require.NoError(t, err)

	// Sentinel answer means no location: nothing fetched, turn still succeeds.
	assert.Empty(t, gw.weatherCalls)
	assert.Empty(t, result.ExternalDataUsed)
	assert.Equal(t, 2, gen.callCount()) // resolution call + generation
}

func TestChatLocationFromExtractedDestination(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	gw := &fakeGateway{}
	svc, _ := newTestService(gen, gw)
	convID := svc.StartConversation("").ConversationID

	_, err := svc.Chat(context.Background(), convID, "I want to visit Paris in summer, budget $2000")
	require.NoError(t, err)

	// Second turn has no location of its own; the remembered destination is used.
	_, err = svc.Chat(context.Background(), convID, "What about the temperature over there?")
	require.NoError(t, err)

	require.NotEmpty(t, gw.weatherCalls)
	assert.Equal(t, "Paris", gw.weatherCalls[len(gw.weatherCalls)-1])
	// No extra resolution call was spent.
	assert.Equal(t, 2, gen.callCount())
}

func TestHistoryExcludesSystemMessages(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	svc, _ := newTestService(gen, &fakeGateway{})
	convID := svc.StartConversation("").ConversationID

	_, err := svc.Chat(context.Background(), convID, "hello friend")
	require.NoError(t, err)

	history, err := svc.History(convID)
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	for _, m := range history.Messages {
		assert.NotEqual(t, domain.RoleSystem, m.Role)
	}

	_, err = svc.History("conv_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListConversationsDefaultsToAnonymous(t *testing.T) {
	gen := &fakeGenerator{respond: alwaysRespond(validResponse)}
	svc, _ := newTestService(gen, &fakeGateway{})

	svc.StartConversation("")
	svc.StartConversation("alice")

	assert.Len(t, svc.ListConversations(""), 1)
	assert.Len(t, svc.ListConversations("alice"), 1)
}

func TestHealth(t *testing.T) {
	gen := &fakeGenerator{
		respond: alwaysRespond(validResponse),
		health:  llm.Health{Available: true, ModelLoaded: true, Model: "fake-model"},
	}
	svc, _ := newTestService(gen, &fakeGateway{})
	svc.StartConversation("")

	status := svc.Health(context.Background())
	assert.True(t, status.LLM.Available)
	assert.Equal(t, 1, status.Conversations.Total)
	assert.False(t, status.Timestamp.IsZero())
}
