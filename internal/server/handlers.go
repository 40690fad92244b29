package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/solenne/wayfarer/internal/domain"
)

type ConversationHandler struct {
	assistant Assistant
}

func NewConversationHandler(assistant Assistant) *ConversationHandler {
	return &ConversationHandler{assistant: assistant}
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID string `json:"ownerId"`
	}
	// An empty body is a valid anonymous start.
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result := h.assistant.StartConversation(req.OwnerID)
	respondJSON(w, result, http.StatusCreated)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("ownerId")
	summaries := h.assistant.ListConversations(ownerID)
	respondJSON(w, map[string]any{"conversations": summaries}, http.StatusOK)
}

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	convID := chi.URLParam(r, "id")

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request", "request body must be JSON with a message field", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, "Invalid request", "Message is required and must be a non-empty string", http.StatusBadRequest)
		return
	}

	result, err := h.assistant.Chat(r.Context(), convID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			respondError(w, "Conversation not found", "Please start a new conversation first", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidInput):
			respondError(w, "Invalid request", "Message is required and must be a non-empty string", http.StatusBadRequest)
		case errors.Is(err, domain.ErrGenerationUnavailable):
			respondError(w, "LLM service unavailable", err.Error(), http.StatusServiceUnavailable)
		default:
			respondError(w, "Failed to process message", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, result, http.StatusOK)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	convID := chi.URLParam(r, "id")

	history, err := h.assistant.History(convID)
	if err != nil {
		respondError(w, "Conversation not found", err.Error(), http.StatusNotFound)
		return
	}

	respondJSON(w, history, http.StatusOK)
}

func (h *ConversationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	convID := chi.URLParam(r, "id")

	if err := h.assistant.Reset(convID); err != nil {
		respondError(w, "Conversation not found", err.Error(), http.StatusNotFound)
		return
	}

	respondJSON(w, map[string]string{
		"message":        "Conversation reset",
		"conversationId": convID,
	}, http.StatusOK)
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	convID := chi.URLParam(r, "id")

	if !h.assistant.Delete(convID) {
		respondError(w, "Conversation not found", "nothing to delete", http.StatusNotFound)
		return
	}

	respondJSON(w, map[string]string{
		"message":        "Conversation deleted",
		"conversationId": convID,
	}, http.StatusOK)
}

type HealthHandler struct {
	assistant Assistant
}

func NewHealthHandler(assistant Assistant) *HealthHandler {
	return &HealthHandler{assistant: assistant}
}

// Health reports 200 only when the generation backend is reachable and the
// configured model is loaded.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.assistant.Health(r.Context())

	code := http.StatusOK
	if !status.LLM.Available || !status.LLM.ModelLoaded {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, status, code)
}
