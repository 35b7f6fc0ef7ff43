package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/kdduha/storyteller/internal/auth"
	"github.com/kdduha/storyteller/internal/models"
	"github.com/rs/zerolog"
)

type chatService interface {
	Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatReply, error)
	Code(ctx context.Context, req *models.ChatRequest) (*models.ChatReply, error)
	ChatStream(ctx context.Context, req *models.ChatRequest) (<-chan models.StreamChunk, error)
}

type ChatHandler struct {
	logger  zerolog.Logger
	service chatService
}

func NewChatHandler(logger zerolog.Logger, service chatService) *ChatHandler {
	return &ChatHandler{
		logger:  logger.With().Str("component", "chat_handler").Logger(),
		service: service,
	}
}

// Conversation godoc
// @Summary Chat with the assistant
// @Description Answers a conversation. The mode selects the system prompt and sampling parameters; unknown modes behave like standard.
// @Tags chat
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Verified user id"
// @Param request body models.ChatRequest true "Conversation"
// @Success 200 {object} models.ChatReply
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/conversation [post]
func (h *ChatHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	h.reply(w, r, h.service.Chat)
}

// Code godoc
// @Summary Ask the coding assistant
// @Description Same as conversation, always in code mode.
// @Tags chat
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Verified user id"
// @Param request body models.ChatRequest true "Conversation"
// @Success 200 {object} models.ChatReply
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/code [post]
func (h *ChatHandler) Code(w http.ResponseWriter, r *http.Request) {
	h.reply(w, r, h.service.Code)
}

func (h *ChatHandler) reply(
	w http.ResponseWriter,
	r *http.Request,
	call func(context.Context, *models.ChatRequest) (*models.ChatReply, error),
) {
	var req models.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	resp, err := call(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.requestLogger(r), err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ConversationStream godoc
// @Summary Stream a chat answer
// @Description Streams answer deltas as server-sent events. The final message event has done=true and the full content.
// @Tags chat
// @Accept json
// @Produce text/event-stream
// @Param X-User-Id header string true "Verified user id"
// @Param request body models.ChatRequest true "Conversation"
// @Success 200 {object} models.StreamChunk "Stream of deltas (SSE)"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/conversation/stream [post]
func (h *ChatHandler) ConversationStream(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	stream, err := h.service.ChatStream(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.requestLogger(r), err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher := http.NewResponseController(w)

	for chunk := range stream {
		if chunk.Err != nil {
			logger := h.requestLogger(r)
			logger.Error().Err(chunk.Err).Msg("stream failed")
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", internalErrorMessage)
			_ = flusher.Flush()
			return
		}

		data, err := sonic.Marshal(chunk)
		if err != nil {
			fmt.Fprintf(w, "event: error\ndata: marshal error\n\n")
			_ = flusher.Flush()
			return
		}

		fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
		_ = flusher.Flush()

		if chunk.Done {
			fmt.Fprintf(w, "event: done\ndata: {}\n\n")
			_ = flusher.Flush()
			return
		}
	}
}

func (h *ChatHandler) requestLogger(r *http.Request) zerolog.Logger {
	userID, _ := auth.UserID(r.Context())
	return h.logger.With().Str("user_id", userID).Logger()
}
