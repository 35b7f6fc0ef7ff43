package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kdduha/storyteller/internal/apperr"
	"github.com/kdduha/storyteller/internal/config"
	"github.com/kdduha/storyteller/internal/metrics"
	"github.com/kdduha/storyteller/internal/mode"
	"github.com/kdduha/storyteller/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"github.com/rs/zerolog"
)

// ChatClient talks to an OpenAI-compatible chat completions endpoint. Every
// call is a single attempt; retries belong to the caller.
type ChatClient struct {
	logger       zerolog.Logger
	openaiClient openai.Client
	provider     string
	apiKey       string
	timeout      time.Duration
	models       map[mode.Model]string
}

func NewChatClient(logger zerolog.Logger, openaiClient openai.Client, cfg config.TextConfig) *ChatClient {
	return &ChatClient{
		logger:       logger.With().Str("component", "chat_client").Str("provider", cfg.Provider).Logger(),
		openaiClient: openaiClient,
		provider:     cfg.Provider,
		apiKey:       cfg.APIKey,
		timeout:      cfg.Timeout,
		models: map[mode.Model]string{
			mode.ChatModel: cfg.ChatModel,
			mode.CodeModel: cfg.CodeModel,
		},
	}
}

// Complete sends the whole conversation and returns the first choice's content.
// A positive timeout bounds the call.
func (c *ChatClient) Complete(ctx context.Context, msgs []models.Message, params mode.Parameters) (string, error) {
	req, err := c.buildRequest(msgs, params)
	if err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.openaiClient.Chat.Completions.New(ctx, *req)
	if err != nil {
		status := statusError
		if errors.Is(err, context.DeadlineExceeded) {
			status = statusTimeout
		}
		metrics.ProviderRequest(string(apperr.KindText), c.provider, status, time.Since(start))
		perr := providerError(apperr.KindText, c.provider, err)
		c.logger.Error().Err(perr).Str("model", string(req.Model)).Msg("chat completion failed")
		return "", perr
	}

	if len(resp.Choices) == 0 {
		metrics.ProviderRequest(string(apperr.KindText), c.provider, statusMalformed, time.Since(start))
		return "", malformed(apperr.KindText, c.provider, "no choices")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		metrics.ProviderRequest(string(apperr.KindText), c.provider, statusMalformed, time.Since(start))
		return "", malformed(apperr.KindText, c.provider, "empty content")
	}

	metrics.ProviderRequest(string(apperr.KindText), c.provider, statusOK, time.Since(start))
	c.logger.Debug().
		Str("model", string(req.Model)).
		Int("messages", len(msgs)).
		Int64("completion_tokens", resp.Usage.CompletionTokens).
		Dur("took", time.Since(start)).
		Msg("chat completion done")
	return content, nil
}

// Stream emits content deltas as they arrive. The last chunk has Done set and
// carries the full content; a failure is delivered as a chunk with Err.
func (c *ChatClient) Stream(
	ctx context.Context,
	msgs []models.Message,
	params mode.Parameters,
) (<-chan models.StreamChunk, error) {
	req, err := c.buildRequest(msgs, params)
	if err != nil {
		return nil, err
	}

	ch := make(chan models.StreamChunk, 1)

	go func() {
		defer close(ch)

		sendOrStop := func(msg models.StreamChunk) bool {
			select {
			case ch <- msg:
				return true
			case <-ctx.Done():
				return false
			}
		}

		start := time.Now()
		stream := c.openaiClient.Chat.Completions.NewStreaming(ctx, *req)
		defer stream.Close()

		var builder strings.Builder

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}

			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}

			builder.WriteString(delta)
			if !sendOrStop(models.StreamChunk{Delta: delta}) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			metrics.ProviderRequest(string(apperr.KindText), c.provider, statusError, time.Since(start))
			perr := providerError(apperr.KindText, c.provider, err)
			c.logger.Error().Err(perr).Msg("chat stream failed")
			sendOrStop(models.StreamChunk{Err: perr})
			return
		}

		if builder.Len() == 0 {
			metrics.ProviderRequest(string(apperr.KindText), c.provider, statusMalformed, time.Since(start))
			sendOrStop(models.StreamChunk{Err: malformed(apperr.KindText, c.provider, "empty stream")})
			return
		}

		metrics.ProviderRequest(string(apperr.KindText), c.provider, statusOK, time.Since(start))
		sendOrStop(models.StreamChunk{Content: builder.String(), Done: true})
	}()

	return ch, nil
}

func (c *ChatClient) buildRequest(msgs []models.Message, params mode.Parameters) (*openai.ChatCompletionNewParams, error) {
	if c.apiKey == "" {
		return nil, &apperr.ConfigurationError{Provider: c.provider, Setting: "DEEPSEEK_API_KEY"}
	}
	if len(msgs) == 0 {
		return nil, &apperr.ValidationError{Field: "messages", Reason: "Messages are required"}
	}

	model, ok := c.models[params.Model]
	if !ok || model == "" {
		return nil, &apperr.ConfigurationError{Provider: c.provider, Setting: fmt.Sprintf("model for %q", params.Model)}
	}

	return &openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: toOpenAIMessages(msgs),
		// max_tokens rather than max_completion_tokens: DeepSeek only understands the former.
		MaxTokens:        openai.Int(int64(params.MaxTokens)),
		Temperature:      openai.Float(params.Temperature),
		TopP:             openai.Float(params.TopP),
		FrequencyPenalty: openai.Float(params.FrequencyPenalty),
		PresencePenalty:  openai.Float(params.PresencePenalty),
	}, nil
}

func toOpenAIMessages(msgs []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
