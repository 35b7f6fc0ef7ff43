package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kdduha/storyteller/internal/metrics"
	"github.com/kdduha/storyteller/internal/mode"
	"github.com/kdduha/storyteller/internal/models"
	"github.com/rs/zerolog"
)

const storySystemPrompt = "You are a creative storyteller. Generate a vivid, positive, and imaginative short story " +
	"(3-5 sentences) about the user's desired future based on their prompt."

// storyParams is fixed: the story must stay short enough to seed an image prompt.
var storyParams = mode.Parameters{
	Temperature: 0.8,
	MaxTokens:   150,
	TopP:        1,
	Model:       mode.ChatModel,
}

// Stage names a step of the story pipeline.
type Stage string

const (
	StageValidating      Stage = "validating"
	StageGeneratingStory Stage = "generating_story"
	StageGeneratingImage Stage = "generating_image"
	StageDone            Stage = "done"
	StageErrored         Stage = "errored"
)

// PipelineError records the stage a story run failed in.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("story pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

type completer interface {
	Complete(ctx context.Context, msgs []models.Message, params mode.Parameters) (string, error)
}

type imageGenerator interface {
	Generate(ctx context.Context, narrative, resolution string) (*models.Image, error)
}

// StoryService writes a short story for a prompt and then illustrates it.
type StoryService struct {
	logger zerolog.Logger
	text   completer
	images imageGenerator
}

func NewStoryService(logger zerolog.Logger, text completer, images imageGenerator) *StoryService {
	return &StoryService{
		logger: logger.With().Str("component", "story_service").Logger(),
		text:   text,
		images: images,
	}
}

// Run executes validating -> generating_story -> generating_image -> done.
// A text failure stops the run before any image request is made. An image
// timeout is not a failure: the result then carries the placeholder URL.
func (s *StoryService) Run(ctx context.Context, prompt, resolution string) (*models.StoryResult, error) {
	start := time.Now()
	logger := s.logger.With().Str("resolution", resolution).Logger()

	req := models.StoryRequest{Prompt: prompt, Resolution: resolution}
	if err := req.Validate(); err != nil {
		return nil, s.fail(logger, StageValidating, err)
	}
	s.advance(logger, StageValidating)

	story, err := s.text.Complete(ctx, []models.Message{
		{Role: models.RoleSystem, Content: storySystemPrompt},
		{Role: models.RoleUser, Content: prompt},
	}, storyParams)
	if err != nil {
		return nil, s.fail(logger, StageGeneratingStory, err)
	}
	s.advance(logger, StageGeneratingStory)

	img, err := s.images.Generate(ctx, story, resolution)
	if err != nil {
		return nil, s.fail(logger, StageGeneratingImage, err)
	}
	s.advance(logger, StageGeneratingImage)

	metrics.PipelineStage(string(StageDone), "ok")
	logger.Info().
		Bool("placeholder_image", img.Placeholder).
		Dur("took", time.Since(start)).
		Msg("story pipeline done")

	return &models.StoryResult{Story: story, ImageURL: img.URL}, nil
}

func (s *StoryService) advance(logger zerolog.Logger, completed Stage) {
	metrics.PipelineStage(string(completed), "ok")
	logger.Debug().Str("stage", string(completed)).Msg("stage completed")
}

func (s *StoryService) fail(logger zerolog.Logger, stage Stage, err error) error {
	metrics.PipelineStage(string(stage), "error")
	metrics.PipelineStage(string(StageErrored), "error")

	event := logger.Error()
	if stage == StageValidating {
		event = logger.Info()
	}
	event.Err(err).Str("stage", string(stage)).Msg("story pipeline stopped")

	return &PipelineError{Stage: stage, Err: err}
}
