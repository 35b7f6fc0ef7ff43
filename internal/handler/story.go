package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kdduha/storyteller/internal/auth"
	"github.com/kdduha/storyteller/internal/models"
	"github.com/rs/zerolog"
)

type storyService interface {
	Run(ctx context.Context, prompt, resolution string) (*models.StoryResult, error)
}

type StoryHandler struct {
	logger  zerolog.Logger
	service storyService
}

func NewStoryHandler(logger zerolog.Logger, service storyService) *StoryHandler {
	return &StoryHandler{
		logger:  logger.With().Str("component", "story_handler").Logger(),
		service: service,
	}
}

// Story godoc
// @Summary Generate an illustrated story
// @Description Writes a short story about the prompt and illustrates it. When the image provider times out, imageUrl points to a placeholder.
// @Tags story
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Verified user id"
// @Param request body models.StoryRequest true "Story request"
// @Success 200 {object} models.StoryResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/story_telling_with_images [post]
func (h *StoryHandler) Story(w http.ResponseWriter, r *http.Request) {
	// fields are decoded loosely so that a wrongly typed value reaches the
	// same validation as a missing one
	var req struct {
		Prompt     any `json:"prompt"`
		Resolution any `json:"resolution"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}

	prompt, ok := req.Prompt.(string)
	if !ok {
		writeError(w, http.StatusBadRequest, "Prompt is required and must be a string")
		return
	}
	resolution, _ := req.Resolution.(string)

	userID, _ := auth.UserID(r.Context())
	logger := h.logger.With().Str("user_id", userID).Logger()

	resp, err := h.service.Run(r.Context(), prompt, resolution)
	if err != nil {
		writeServiceError(w, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
