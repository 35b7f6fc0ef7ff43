package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kdduha/storyteller/internal/metrics"
	"github.com/kdduha/storyteller/internal/mode"
	"github.com/kdduha/storyteller/internal/models"
	"github.com/rs/zerolog"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
}

type chatCompleter interface {
	completer
	Stream(ctx context.Context, msgs []models.Message, params mode.Parameters) (<-chan models.StreamChunk, error)
}

type ChatService struct {
	logger zerolog.Logger
	text   chatCompleter
	cache  Cache
}

func NewChatService(logger zerolog.Logger, text chatCompleter) *ChatService {
	return &ChatService{
		logger: logger.With().Str("component", "chat_service").Logger(),
		text:   text,
	}
}

func (c *ChatService) SetCacheClient(cache Cache) {
	c.cache = cache
}

// Chat answers a conversation in the requested mode.
func (c *ChatService) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatReply, error) {
	return c.reply(ctx, req, mode.Parse(req.RequestedMode()))
}

// Code answers a conversation with the coding assistant profile regardless of
// the mode in the request.
func (c *ChatService) Code(ctx context.Context, req *models.ChatRequest) (*models.ChatReply, error) {
	return c.reply(ctx, req, mode.Code)
}

func (c *ChatService) reply(ctx context.Context, req *models.ChatRequest, m mode.Mode) (*models.ChatReply, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msgs, params := prepareConversation(req.Messages, m)
	key := getCacheKey(m, msgs)

	if cached, found := c.lookup(ctx, key); found {
		return &models.ChatReply{Role: models.RoleAssistant, Content: cached}, nil
	}

	content, err := c.text.Complete(ctx, msgs, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion in %s mode: %w", m, err)
	}

	c.store(ctx, key, content)
	return &models.ChatReply{Role: models.RoleAssistant, Content: content}, nil
}

// ChatStream is Chat delivered as a stream of deltas.
func (c *ChatService) ChatStream(ctx context.Context, req *models.ChatRequest) (<-chan models.StreamChunk, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	m := mode.Parse(req.RequestedMode())
	msgs, params := prepareConversation(req.Messages, m)
	key := getCacheKey(m, msgs)

	if cached, found := c.lookup(ctx, key); found {
		ch := make(chan models.StreamChunk, 1)
		ch <- models.StreamChunk{Delta: cached, Content: cached, Done: true}
		close(ch)
		return ch, nil
	}

	upstream, err := c.text.Stream(ctx, msgs, params)
	if err != nil {
		return nil, fmt.Errorf("chat stream in %s mode: %w", m, err)
	}
	if c.cache == nil {
		return upstream, nil
	}

	ch := make(chan models.StreamChunk, 1)
	go func() {
		defer close(ch)
		for chunk := range upstream {
			if chunk.Done {
				c.store(ctx, key, chunk.Content)
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// prepareConversation prepends the mode's system prompt unless the caller
// already supplied a system message.
func prepareConversation(in []models.Message, m mode.Mode) ([]models.Message, mode.Parameters) {
	systemPrompt, params := mode.Resolve(m)
	if models.HasSystemMessage(in) {
		return in, params
	}

	msgs := make([]models.Message, 0, len(in)+1)
	msgs = append(msgs, models.Message{Role: models.RoleSystem, Content: systemPrompt})
	msgs = append(msgs, in...)
	return msgs, params
}

func (c *ChatService) lookup(ctx context.Context, key string) (string, bool) {
	if c.cache == nil {
		return "", false
	}
	cached, found, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache get error")
		return "", false
	}
	metrics.CacheLookup(found)
	if found {
		c.logger.Debug().Msg("served from cache")
	}
	return cached, found
}

func (c *ChatService) store(ctx context.Context, key, value string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, value); err != nil {
		c.logger.Warn().Err(err).Msg("failed to set cache")
	}
}

func getCacheKey(m mode.Mode, msgs []models.Message) string {
	data := make([]string, 0, len(msgs)+1)
	data = append(data, string(m))
	for _, msg := range msgs {
		data = append(data, string(msg.Role)+":"+msg.Content)
	}

	hash := sha256.Sum256([]byte(strings.Join(data, "\x00")))
	return "chat:" + hex.EncodeToString(hash[:])
}
