package llm

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kdduha/storyteller/internal/apperr"
	"github.com/kdduha/storyteller/internal/config"
	"github.com/kdduha/storyteller/internal/metrics"
	"github.com/kdduha/storyteller/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/rs/zerolog"
)

const imagePromptTemplate = "A vivid, futuristic scene from: %s"

// ImageClient asks an image provider to illustrate a narrative. A call that
// outlives the configured timeout resolves to a placeholder URL instead of
// an error.
type ImageClient struct {
	logger          zerolog.Logger
	openaiClient    openai.Client
	clock           clockwork.Clock
	provider        string
	apiKey          string
	model           string
	timeout         time.Duration
	fallbackBaseURL string
}

func NewImageClient(logger zerolog.Logger, openaiClient openai.Client, cfg config.ImageConfig, clock clockwork.Clock) *ImageClient {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ImageClient{
		logger:          logger.With().Str("component", "image_client").Str("provider", cfg.Provider).Logger(),
		openaiClient:    openaiClient,
		clock:           clock,
		provider:        cfg.Provider,
		apiKey:          cfg.APIKey,
		model:           cfg.Model,
		timeout:         cfg.Timeout,
		fallbackBaseURL: cfg.FallbackBaseURL,
	}
}

// PlaceholderURL is the image reference returned when generation timed out.
func PlaceholderURL(baseURL, resolution string) string {
	return fmt.Sprintf("%s/fallback-image-%s-timeout.png", strings.TrimRight(baseURL, "/"), resolution)
}

func (c *ImageClient) Generate(ctx context.Context, narrative, resolution string) (*models.Image, error) {
	if !models.IsAllowedResolution(resolution) {
		return nil, &apperr.ValidationError{
			Field:   "resolution",
			Reason:  "Invalid resolution",
			Allowed: slices.Clone(models.Resolutions),
		}
	}
	if strings.TrimSpace(narrative) == "" {
		return nil, &apperr.ValidationError{Field: "narrative", Reason: "narrative is empty"}
	}
	if c.apiKey == "" {
		return nil, &apperr.ConfigurationError{Provider: c.provider, Setting: "OPENAI_API_KEY"}
	}

	params := openai.ImageGenerateParams{
		Model:          openai.ImageModel(c.model),
		Prompt:         fmt.Sprintf(imagePromptTemplate, narrative),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(resolution),
		Quality:        openai.ImageGenerateParamsQualityStandard,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var timedOut atomic.Bool
	guard := c.clock.AfterFunc(c.timeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer guard.Stop()

	start := c.clock.Now()
	resp, err := c.openaiClient.Images.Generate(reqCtx, params)
	took := c.clock.Since(start)

	if err != nil {
		if timedOut.Load() {
			metrics.ProviderRequest(string(apperr.KindImage), c.provider, statusTimeout, took)
			metrics.ImagePlaceholder(resolution)
			c.logger.Warn().
				Str("resolution", resolution).
				Dur("timeout", c.timeout).
				Msg("image generation timed out, serving placeholder")
			return &models.Image{URL: PlaceholderURL(c.fallbackBaseURL, resolution), Placeholder: true}, nil
		}

		metrics.ProviderRequest(string(apperr.KindImage), c.provider, statusError, took)
		perr := providerError(apperr.KindImage, c.provider, err)
		c.logger.Error().Err(perr).Str("resolution", resolution).Msg("image generation failed")
		return nil, perr
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		metrics.ProviderRequest(string(apperr.KindImage), c.provider, statusMalformed, took)
		return nil, malformed(apperr.KindImage, c.provider, "no image url")
	}

	metrics.ProviderRequest(string(apperr.KindImage), c.provider, statusOK, took)
	c.logger.Debug().Str("resolution", resolution).Dur("took", took).Msg("image generated")
	return &models.Image{URL: resp.Data[0].URL}, nil
}
