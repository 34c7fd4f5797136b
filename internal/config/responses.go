package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ResponseRule maps prompt keywords to a canned reply
type ResponseRule struct {
	Keywords []string `json:"keywords"`
	Reply    string   `json:"reply"`
}

// ResponsesConfig holds the canned-reply catalogue of the placeholder provider
type ResponsesConfig struct {
	Rules     []ResponseRule `json:"rules"`
	Fallbacks []string       `json:"fallbacks"`
	Fillers   []string       `json:"fillers"`
}

// NewResponsesConfig creates a responses catalogue from a JSON file.
// Sections missing from the file keep their built-in defaults.
func NewResponsesConfig(configPath string) (*ResponsesConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var fromFile ResponsesConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return nil, err
	}

	rc := DefaultResponsesConfig()
	if len(fromFile.Rules) > 0 {
		rc.Rules = fromFile.Rules
	}
	if len(fromFile.Fallbacks) > 0 {
		rc.Fallbacks = fromFile.Fallbacks
	}
	if len(fromFile.Fillers) > 0 {
		rc.Fillers = fromFile.Fillers
	}

	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return rc, nil
}

// Validate checks that every rule can match and reply
func (rc *ResponsesConfig) Validate() error {
	for i, rule := range rc.Rules {
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("rule %d has no keywords", i)
		}
		if rule.Reply == "" {
			return fmt.Errorf("rule %d has an empty reply", i)
		}
	}
	if len(rc.Fallbacks) == 0 {
		return fmt.Errorf("at least one fallback reply is required")
	}
	return nil
}

// DefaultResponsesConfig returns the built-in catalogue.
// The {time} placeholder is replaced with the local clock time.
func DefaultResponsesConfig() *ResponsesConfig {
	return &ResponsesConfig{
		Rules: []ResponseRule{
			{
				Keywords: []string{"hello", "hi "},
				Reply:    "Hello! I'm MindMeld, your local AI assistant. How can I help you today?",
			},
			{
				Keywords: []string{"how are you"},
				Reply:    "As an AI running on your machine, I don't have feelings, but I'm functioning properly and ready to assist you!",
			},
			{
				Keywords: []string{"your name"},
				Reply:    "I'm MindMeld, a local AI assistant. Everything I do happens on your own device.",
			},
			{
				Keywords: []string{"weather"},
				Reply:    "As a local AI, I don't have access to real-time weather data. You might want to check a weather website or app for that information.",
			},
			{
				Keywords: []string{"time"},
				Reply:    "According to your system clock, the local time is {time}.",
			},
			{
				Keywords: []string{"tensorflow", "how do you work"},
				Reply:    "I run entirely on your device. All processing happens locally, so no data is sent to external servers!",
			},
			{
				Keywords: []string{"help"},
				Reply:    "I can have conversations on various topics, answer questions, provide explanations, and assist with brainstorming ideas. What would you like to talk about?",
			},
			{
				Keywords: []string{"capabilities", "can you do"},
				Reply:    "As a local AI assistant, I can engage in conversations, answer questions based on my training, and assist with generating ideas. However, I don't have access to the internet for real-time information, can't browse websites, and my knowledge is limited to what was included in my training data.",
			},
			{
				Keywords: []string{"thank"},
				Reply:    "You're welcome! Feel free to ask if you need anything else.",
			},
		},
		Fallbacks: []string{
			"That's an interesting question. As a lightweight local model, I have certain limitations, but I'll try my best to help you with that.",
			"I understand you're asking about that topic. While I'm running entirely on your machine with limited capabilities, here's what I can tell you...",
			"Thanks for your question. Since I'm a lightweight model running directly on your device, my knowledge is somewhat limited, but I'll do my best to assist you.",
			"I appreciate your query. As MindMeld, I'm designed to run completely locally, which means I process everything on your device without sending data elsewhere.",
			"That's a good question. While I don't have the full capabilities of server-based models, I can still provide some insights on this topic.",
		},
		Fillers: []string{
			" I find this topic quite fascinating, actually.",
			" There are multiple perspectives on this matter.",
			" This is based on my understanding as a local AI.",
			" I hope that helps answer your question.",
			" Feel free to ask for clarification if needed.",
		},
	}
}
