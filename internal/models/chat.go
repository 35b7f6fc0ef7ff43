package models

import (
	"fmt"
	"strings"

	"github.com/kdduha/storyteller/internal/apperr"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

type Message struct {
	Role    Role   `json:"role" example:"user"`
	Content string `json:"content" example:"How do I reverse a slice in Go?"`
}

// ChatRequest represents request for conversation and code endpoints
type ChatRequest struct {
	Messages []Message `json:"messages" validate:"required"`
	Mode     string    `json:"mode,omitempty" example:"standard" enums:"standard,code,creative,concise"`

	// ConversationMode is accepted as an alias of Mode for older clients.
	ConversationMode string `json:"conversationMode,omitempty" swaggerignore:"true"`
}

func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &apperr.ValidationError{Field: "messages", Reason: "Messages are required"}
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return &apperr.ValidationError{
				Field:   "messages",
				Reason:  fmt.Sprintf("message %d has unknown role %q", i, m.Role),
				Allowed: []string{string(RoleSystem), string(RoleUser), string(RoleAssistant)},
			}
		}
		if strings.TrimSpace(m.Content) == "" {
			return &apperr.ValidationError{Field: "messages", Reason: fmt.Sprintf("message %d has empty content", i)}
		}
	}
	return nil
}

// RequestedMode returns Mode, falling back to the ConversationMode alias.
func (r ChatRequest) RequestedMode() string {
	if r.Mode != "" {
		return r.Mode
	}
	return r.ConversationMode
}

// HasSystemMessage reports whether any message already steers the model.
func HasSystemMessage(msgs []Message) bool {
	for _, m := range msgs {
		if m.Role == RoleSystem {
			return true
		}
	}
	return false
}

type ChatReply struct {
	Role    Role   `json:"role" example:"assistant"`
	Content string `json:"content"`
}

type StreamChunk struct {
	Delta   string `json:"delta,omitempty"`
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Err     error  `json:"-"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"Internal server error"`
}
