package models

import (
	"slices"
	"strings"

	"github.com/kdduha/storyteller/internal/apperr"
)

// Resolutions is the canonical allow-list of image sizes, the ones dall-e-3 accepts.
var Resolutions = []string{"1024x1024", "1792x1024", "1024x1792"}

// IsAllowedResolution reports whether res is in Resolutions.
func IsAllowedResolution(res string) bool {
	return slices.Contains(Resolutions, res)
}

// StoryRequest represents request for story endpoint
type StoryRequest struct {
	Prompt     string `json:"prompt" validate:"required" example:"I live in a floating city powered by the sun"`
	Resolution string `json:"resolution" validate:"required" example:"1024x1024" enums:"1024x1024,1792x1024,1024x1792"`
}

func (r StoryRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &apperr.ValidationError{Field: "prompt", Reason: "Prompt is required and must be a string"}
	}
	if !IsAllowedResolution(r.Resolution) {
		return &apperr.ValidationError{
			Field:   "resolution",
			Reason:  "Invalid resolution",
			Allowed: slices.Clone(Resolutions),
		}
	}
	return nil
}

type StoryResult struct {
	Story    string `json:"story"`
	ImageURL string `json:"imageUrl"`
}

// Image is the outcome of the image stage. Placeholder is set when the
// provider timed out and URL points to the fallback image.
type Image struct {
	URL         string
	Placeholder bool
}
