// Package mode maps a conversational mode to the system prompt and sampling
// parameters sent to the text provider.
package mode

import "strings"

type Mode string

const (
	Standard Mode = "standard"
	Code     Mode = "code"
	Creative Mode = "creative"
	Concise  Mode = "concise"
)

// Model is a symbolic model id; config binds it to a provider model name.
type Model string

const (
	ChatModel Model = "chat"
	CodeModel Model = "code"
)

// Parameters is the sampling bundle for one completion call.
type Parameters struct {
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Model            Model
}

const (
	systemPromptStandard = "You are a helpful assistant that provides accurate, insightful, and contextually appropriate responses. " +
		"Balance depth with clarity, adapt to the user's needs, and maintain a conversational tone."
	systemPromptCode = "You are an expert coding assistant. Provide clear, efficient code solutions with explanations. " +
		"Focus on best practices, maintainability, and performance."
	systemPromptCreative = "You are a creative conversational partner. Engage with imagination, generate innovative ideas, " +
		"and provide thoughtful, nuanced responses."
	systemPromptConcise = "You are a concise assistant. Provide brief, direct answers without unnecessary elaboration " +
		"while maintaining helpfulness."
)

type profile struct {
	systemPrompt string
	params       Parameters
}

var profiles = map[Mode]profile{
	Standard: {
		systemPrompt: systemPromptStandard,
		params:       Parameters{Temperature: 0.7, MaxTokens: 2048, TopP: 0.9, Model: ChatModel},
	},
	Code: {
		systemPrompt: systemPromptCode,
		params:       Parameters{Temperature: 0.2, MaxTokens: 2048, TopP: 0.9, Model: CodeModel},
	},
	Creative: {
		systemPrompt: systemPromptCreative,
		params: Parameters{
			Temperature:      0.9,
			MaxTokens:        2048,
			TopP:             0.9,
			FrequencyPenalty: 0.2,
			PresencePenalty:  0.4,
			Model:            ChatModel,
		},
	},
	Concise: {
		systemPrompt: systemPromptConcise,
		params:       Parameters{Temperature: 0.5, MaxTokens: 1024, TopP: 0.9, Model: ChatModel},
	},
}

// Parse normalizes s. Unknown values resolve to Standard.
func Parse(s string) Mode {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := profiles[m]; ok {
		return m
	}
	return Standard
}

// Resolve returns the system prompt and parameters of m. Unknown modes get
// the Standard bundle.
func Resolve(m Mode) (string, Parameters) {
	p, ok := profiles[m]
	if !ok {
		p = profiles[Standard]
	}
	return p.systemPrompt, p.params
}

// All lists the known modes.
func All() []Mode {
	return []Mode{Standard, Code, Creative, Concise}
}
