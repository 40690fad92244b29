// Package store holds per-conversation state in memory. The store owns
// conversation lifetime exclusively; callers get copies, never live references.
package store

import (
	"sync"
	"time"

	"github.com/solenne/wayfarer/internal/domain"
	"github.com/solenne/wayfarer/internal/extract"
	"github.com/solenne/wayfarer/internal/metrics"
	"github.com/solenne/wayfarer/shared/id"
)

const DefaultMaxHistory = 20

type Store struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
	maxHistory    int

	now func() time.Time
}

type Option func(*Store)

// WithMaxHistory overrides the message cap enforced on append.
func WithMaxHistory(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithClock injects a time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		conversations: make(map[string]*domain.Conversation),
		maxHistory:    DefaultMaxHistory,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create allocates a fresh conversation and returns its ID. It never fails.
func (s *Store) Create(ownerID string) string {
	if ownerID == "" {
		ownerID = domain.AnonymousOwner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	convID := id.NewConversation()
	s.conversations[convID] = &domain.Conversation{
		ID:           convID,
		OwnerID:      ownerID,
		Messages:     []domain.Message{},
		Context:      domain.NewContext(),
		CreatedAt:    now,
		LastActivity: now,
	}

	metrics.ConversationsActive.Set(float64(len(s.conversations)))
	return convID
}

// Get returns a copy of the conversation, or false if the ID is unknown.
func (s *Store) Get(convID string) (domain.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return domain.Conversation{}, false
	}
	return copyConversation(conv), true
}

// AppendMessage appends a message, refreshes LastActivity and enforces the
// history cap. System messages are exempt from eviction; the oldest
// non-system messages go first.
func (s *Store) AppendMessage(convID, role, content string, meta *domain.MessageMeta) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return domain.Message{}, domain.ErrNotFound
	}

	msg := domain.Message{
		ID:        id.NewMessage(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
		Metadata:  meta,
	}

	conv.Messages = append(conv.Messages, msg)
	conv.LastActivity = s.now()

	if len(conv.Messages) > s.maxHistory {
		conv.Messages = evictOldest(conv.Messages, s.maxHistory)
	}

	metrics.MessagesTotal.Inc()
	return msg, nil
}

func evictOldest(messages []domain.Message, maxHistory int) []domain.Message {
	var system, rest []domain.Message
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}

	keep := maxHistory - len(system)
	if keep < 0 {
		keep = 0
	}
	if len(rest) > keep {
		rest = rest[len(rest)-keep:]
	}

	return append(system, rest...)
}

// MergePreferences shallow-merges caller-supplied preferences.
func (s *Store) MergePreferences(convID string, prefs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return domain.ErrNotFound
	}

	for k, v := range prefs {
		conv.Context.Preferences[k] = v
	}
	return nil
}

// MergeExtractedContext mines the utterance for travel signals and folds them
// into the conversation context. Unknown IDs are a silent no-op: this is
// best-effort enrichment, not a correctness-critical step.
func (s *Store) MergeExtractedContext(convID, utterance string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return
	}

	extract.Apply(&conv.Context.Extracted, utterance)
}

// FormattedHistory returns the {role, content} projection of the message
// sequence. Unknown IDs yield an empty sequence.
func (s *Store) FormattedHistory(convID string) []domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return []domain.HistoryEntry{}
	}

	history := make([]domain.HistoryEntry, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		history = append(history, domain.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return history
}

// Reset clears all non-system messages and empties the context, preserving
// the conversation ID and creation timestamp.
func (s *Store) Reset(convID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return domain.ErrNotFound
	}

	kept := conv.Messages[:0:0]
	for _, m := range conv.Messages {
		if m.Role == domain.RoleSystem {
			kept = append(kept, m)
		}
	}
	conv.Messages = kept
	conv.Context = domain.NewContext()
	return nil
}

// Delete reports whether a conversation existed and was removed.
func (s *Store) Delete(convID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.conversations[convID]
	if ok {
		delete(s.conversations, convID)
		metrics.ConversationsActive.Set(float64(len(s.conversations)))
	}
	return ok
}

// ListByOwner returns summaries of the owner's conversations.
func (s *Store) ListByOwner(ownerID string) []domain.ConversationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := []domain.ConversationSummary{}
	for _, conv := range s.conversations {
		if conv.OwnerID != ownerID {
			continue
		}
		summary := domain.ConversationSummary{
			ID:           conv.ID,
			CreatedAt:    conv.CreatedAt,
			LastActivity: conv.LastActivity,
			MessageCount: len(conv.Messages),
		}
		if n := len(conv.Messages); n > 0 {
			summary.Preview = preview(conv.Messages[n-1].Content, 100)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func preview(content string, max int) string {
	if len(content) > max {
		return content[:max]
	}
	return content
}

// SweepExpired removes every conversation whose last activity predates
// now minus maxAge, returning the number removed.
func (s *Store) SweepExpired(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for convID, conv := range s.conversations {
		if conv.LastActivity.Before(cutoff) {
			delete(s.conversations, convID)
			removed++
		}
	}

	if removed > 0 {
		metrics.ConversationsActive.Set(float64(len(s.conversations)))
	}
	return removed
}

type Stats struct {
	Total                int `json:"totalConversations"`
	ActiveWithinLastHour int `json:"activeConversations"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-time.Hour)
	stats := Stats{Total: len(s.conversations)}
	for _, conv := range s.conversations {
		if conv.LastActivity.After(cutoff) {
			stats.ActiveWithinLastHour++
		}
	}
	return stats
}

func copyConversation(conv *domain.Conversation) domain.Conversation {
	out := *conv
	out.Messages = append([]domain.Message(nil), conv.Messages...)
	out.Context = copyContext(conv.Context)
	return out
}

func copyContext(c domain.Context) domain.Context {
	out := domain.Context{Preferences: make(map[string]string, len(c.Preferences))}
	for k, v := range c.Preferences {
		out.Preferences[k] = v
	}
	out.Extracted = c.Extracted
	out.Extracted.Destinations = append([]string(nil), c.Extracted.Destinations...)
	out.Extracted.TravelStyles = append([]string(nil), c.Extracted.TravelStyles...)
	out.Extracted.Interests = append([]string(nil), c.Extracted.Interests...)
	return out
}
