// Package state owns the application state: conversations, the current
// selection, model settings and appearance. All mutations go through Manager.
package state

import (
	"mindmeld/internal/repository/db"

	clone "github.com/huandu/go-clone"
)

// DefaultTitle is the title of a conversation before its first user message
const DefaultTitle = "New Conversation"

// TitleMaxLength is the number of characters kept from the first user message
const TitleMaxLength = 30

// State is the aggregate root. Values returned by Manager are deep copies.
type State struct {
	Conversations []db.Conversation

	// CurrentConversationID is empty when nothing is selected. It may name a
	// conversation that no longer exists; see Manager.CurrentConversation.
	CurrentConversationID string

	// Transient, never persisted
	IsModelLoaded bool
	IsGenerating  bool

	ModelSettings db.ModelSettings
	DarkMode      bool
}

// initialState returns the first-run state
func initialState(prefersDark bool) State {
	return State{
		Conversations: []db.Conversation{},
		ModelSettings: db.DefaultModelSettings(),
		DarkMode:      prefersDark,
	}
}

func (s *State) snapshot() *db.Snapshot {
	dark := s.DarkMode
	return &db.Snapshot{
		Conversations: clone.Clone(s.Conversations).([]db.Conversation),
		ModelSettings: db.PatchFrom(s.ModelSettings),
		DarkMode:      &dark,
	}
}

// merge applies a loaded snapshot over the current state
func (s *State) merge(snap *db.Snapshot) {
	if snap.Conversations != nil {
		s.Conversations = snap.Conversations
	}
	if snap.ModelSettings != nil {
		s.ModelSettings = snap.ModelSettings.Apply(s.ModelSettings)
	}
	if snap.DarkMode != nil {
		s.DarkMode = *snap.DarkMode
	}
}

func (s *State) indexOf(id string) int {
	for i := range s.Conversations {
		if s.Conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	return clone.Clone(s).(State)
}

// makeTitle derives a conversation title from the first user message
func makeTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= TitleMaxLength {
		return content
	}
	return string(runes[:TitleMaxLength]) + "..."
}
