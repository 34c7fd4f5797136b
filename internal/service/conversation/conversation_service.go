package conversation

import (
	"errors"
	"fmt"
	"mindmeld/internal/repository/db"
	"mindmeld/internal/state"
	"strconv"
	"strings"
	"time"
)

// ListTitleLength is the number of characters of a title shown in listings
const ListTitleLength = 25

var (
	// ErrConversationNotFound is returned when a reference matches no conversation
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrNoConversationSelected is returned when an operation needs a current conversation
	ErrNoConversationSelected = errors.New("no conversation selected")
)

// ConversationSummary is one row of the conversation list
type ConversationSummary struct {
	Index        int // 1-based position in the list
	ID           string
	Title        string
	MessageCount int
	UpdatedAt    string
	Current      bool
}

// ConversationService handles the business logic for conversation management
type ConversationService struct {
	manager *state.Manager
	now     func() time.Time
}

// NewConversationService creates a new ConversationService
func NewConversationService(manager *state.Manager) *ConversationService {
	return &ConversationService{
		manager: manager,
		now:     time.Now,
	}
}

// GetConversations returns the conversation list, most recent first
func (s *ConversationService) GetConversations() []ConversationSummary {
	conversations := s.manager.Conversations()
	currentID := s.manager.CurrentConversationID()
	now := s.now()

	result := make([]ConversationSummary, 0, len(conversations))
	for i, conv := range conversations {
		result = append(result, ConversationSummary{
			Index:        i + 1,
			ID:           conv.ID,
			Title:        TruncateText(conv.Title, ListTitleLength),
			MessageCount: len(conv.Messages),
			UpdatedAt:    FormatMessageTime(conv.UpdatedAt, now),
			Current:      conv.ID == currentID,
		})
	}

	return result
}

// Resolve finds a conversation by 1-based list position or by id
func (s *ConversationService) Resolve(ref string) (db.Conversation, error) {
	ref = strings.TrimSpace(ref)
	conversations := s.manager.Conversations()

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(conversations) {
			return db.Conversation{}, fmt.Errorf("%w: no conversation at position %d", ErrConversationNotFound, n)
		}
		return conversations[n-1], nil
	}

	for _, conv := range conversations {
		if conv.ID == ref {
			return conv, nil
		}
	}
	return db.Conversation{}, fmt.Errorf("%w: %q", ErrConversationNotFound, ref)
}

// SwitchConversation selects the referenced conversation and returns it
func (s *ConversationService) SwitchConversation(ref string) (db.Conversation, error) {
	conv, err := s.Resolve(ref)
	if err != nil {
		return db.Conversation{}, err
	}
	s.manager.SelectConversation(conv.ID)
	return conv, nil
}

// GetConversationMessages retrieves all messages from the current conversation
func (s *ConversationService) GetConversationMessages() ([]db.Message, error) {
	conv, ok := s.manager.CurrentConversation()
	if !ok {
		return nil, ErrNoConversationSelected
	}
	return conv.Messages, nil
}

// DeleteConversation deletes the referenced conversation, or the current one
// when ref is empty. It returns the deleted conversation.
func (s *ConversationService) DeleteConversation(ref string) (db.Conversation, error) {
	var conv db.Conversation
	if strings.TrimSpace(ref) == "" {
		current, ok := s.manager.CurrentConversation()
		if !ok {
			return db.Conversation{}, ErrNoConversationSelected
		}
		conv = current
	} else {
		found, err := s.Resolve(ref)
		if err != nil {
			return db.Conversation{}, err
		}
		conv = found
	}

	s.manager.DeleteConversation(conv.ID)
	return conv, nil
}

// FormatMessageTime renders t relative to now: clock time today,
// "Yesterday, 15:04", the weekday within a week, otherwise "Jan 2, 15:04"
func FormatMessageTime(t, now time.Time) string {
	t = t.In(now.Location())
	clock := t.Format("15:04")

	if sameDay(t, now) {
		return clock
	}
	if sameDay(t, now.AddDate(0, 0, -1)) {
		return "Yesterday, " + clock
	}
	if t.After(now.AddDate(0, 0, -7)) {
		return t.Format("Mon") + ", " + clock
	}
	return t.Format("Jan 2") + ", " + clock
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// TruncateText shortens text to length characters followed by "..."
func TruncateText(text string, length int) string {
	runes := []rune(text)
	if len(runes) <= length {
		return text
	}
	return string(runes[:length]) + "..."
}
