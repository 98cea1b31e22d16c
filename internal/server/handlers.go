package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/cg-assist/backend/internal/agent"
	"github.com/cg-assist/backend/internal/convo"
	"github.com/cg-assist/backend/internal/stream"
)

// Handlers holds the dependencies behind the HTTP surface.
type Handlers struct {
	loop  *agent.Loop
	store convo.Store
	log   *slog.Logger
}

// NewHandlers wires the handler set.
func NewHandlers(loop *agent.Loop, store convo.Store, log *slog.Logger) *Handlers {
	return &Handlers{loop: loop, store: store, log: log}
}

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id,omitempty"`
	ImageBase64    string `json:"image_base64,omitempty"`
}

// Chat runs a query through the reasoning loop, streaming progress as SSE.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	var conversationID uuid.UUID
	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid conversation_id")
			return
		}
		conversationID = id
	}

	sse, err := stream.NewWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	runErr := h.loop.Run(r.Context(), agent.Request{
		ConversationID: conversationID,
		UserID:         userID(r),
		Query:          req.Query,
		ImageBase64:    req.ImageBase64,
	}, func(ev agent.Event) error {
		return sse.Send(string(ev.Type), ev.Data)
	})
	if runErr != nil && !errors.Is(runErr, r.Context().Err()) {
		h.log.Error("chat run failed", "error", runErr)
	}
}

// ListConversations returns the user's conversation summaries.
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	summaries, err := h.store.List(r.Context(), userID(r), limit)
	if err != nil {
		h.log.Error("failed to list conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": summaries})
}

// GetConversation returns one conversation with its full history.
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	conv, err := h.store.Get(r.Context(), id, userID(r))
	if errors.Is(err, convo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		h.log.Error("failed to get conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// DeleteConversation removes one conversation.
func (h *Handlers) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.store.Delete(r.Context(), id, userID(r))
	if errors.Is(err, convo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		h.log.Error("failed to delete conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
