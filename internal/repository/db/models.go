package db

import "time"

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single entry in a conversation
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation represents an ordered, append-only list of messages
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ModelSettings holds the generation parameters passed to the response provider.
// Ranges are advisory: temperature and topP in [0,1], maxTokens in [100,2000].
type ModelSettings struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	MaxTokens   int     `json:"maxTokens"`
	UseHistory  bool    `json:"useHistory"`
}

// DefaultModelSettings returns the settings used on first run
func DefaultModelSettings() ModelSettings {
	return ModelSettings{
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   1000,
		UseHistory:  true,
	}
}

// SettingsPatch is a partial settings update; nil fields are left untouched
type SettingsPatch struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
	UseHistory  *bool    `json:"useHistory,omitempty"`
}

// Apply merges the patch over s and returns the result
func (p SettingsPatch) Apply(s ModelSettings) ModelSettings {
	if p.Temperature != nil {
		s.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		s.TopP = *p.TopP
	}
	if p.MaxTokens != nil {
		s.MaxTokens = *p.MaxTokens
	}
	if p.UseHistory != nil {
		s.UseHistory = *p.UseHistory
	}
	return s
}

// PatchFrom returns a patch that sets every field of s
func PatchFrom(s ModelSettings) *SettingsPatch {
	return &SettingsPatch{
		Temperature: &s.Temperature,
		TopP:        &s.TopP,
		MaxTokens:   &s.MaxTokens,
		UseHistory:  &s.UseHistory,
	}
}

// Snapshot is the persisted subset of application state.
// Fields left nil by a store fall back to defaults on load.
type Snapshot struct {
	Conversations []Conversation `json:"conversations"`
	ModelSettings *SettingsPatch `json:"modelSettings,omitempty"`
	DarkMode      *bool          `json:"darkMode,omitempty"`
}
