package conversation

import (
	"errors"
	"mindmeld/internal/repository/db"
	"mindmeld/internal/state"
	"mindmeld/internal/testutil"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 3, 14, 16, 30, 0, 0, time.UTC) // a Friday

func newTestService() (*ConversationService, *state.Manager) {
	manager := state.NewManager(
		state.WithIDGenerator(testutil.SequentialIDs("conv")),
		state.WithClock(func() time.Time { return fixedNow.Add(-time.Hour) }),
	)
	service := NewConversationService(manager)
	service.now = func() time.Time { return fixedNow }
	return service, manager
}

// Test GetConversations
func TestGetConversations(t *testing.T) {
	service, manager := newTestService()

	first := manager.CreateConversation()
	manager.AppendMessage(db.RoleUser, "This is a rather long first message for a title")
	second := manager.CreateConversation()

	list := service.GetConversations()
	if len(list) != 2 {
		t.Fatalf("Expected 2 conversations, got %d", len(list))
	}

	if list[0].ID != second || list[0].Index != 1 || !list[0].Current {
		t.Errorf("Unexpected head row: %+v", list[0])
	}
	if list[0].Title != state.DefaultTitle {
		t.Errorf("Expected default title, got %q", list[0].Title)
	}

	if list[1].ID != first || list[1].Index != 2 || list[1].Current {
		t.Errorf("Unexpected second row: %+v", list[1])
	}
	if list[1].Title != "This is a rather long fir..." {
		t.Errorf("Expected truncated title, got %q", list[1].Title)
	}
	if list[1].MessageCount != 1 {
		t.Errorf("Expected 1 message, got %d", list[1].MessageCount)
	}
	if list[1].UpdatedAt != "15:30" {
		t.Errorf("Expected clock time for today, got %q", list[1].UpdatedAt)
	}
}

// Test GetConversations - empty
func TestGetConversations_Empty(t *testing.T) {
	service, _ := newTestService()

	list := service.GetConversations()
	if list == nil || len(list) != 0 {
		t.Errorf("Expected empty non-nil list, got %v", list)
	}
}

// Test Resolve
func TestResolve(t *testing.T) {
	service, manager := newTestService()
	older := manager.CreateConversation()
	newer := manager.CreateConversation()

	tests := []struct {
		name    string
		ref     string
		wantID  string
		wantErr bool
	}{
		{name: "position 1", ref: "1", wantID: newer},
		{name: "position 2 with spaces", ref: " 2 ", wantID: older},
		{name: "by id", ref: older, wantID: older},
		{name: "position 0", ref: "0", wantErr: true},
		{name: "position past end", ref: "3", wantErr: true},
		{name: "unknown id", ref: "missing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := service.Resolve(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, ErrConversationNotFound) {
					t.Errorf("Expected ErrConversationNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if conv.ID != tt.wantID {
				t.Errorf("Expected %s, got %s", tt.wantID, conv.ID)
			}
		})
	}
}

// Test SwitchConversation
func TestSwitchConversation(t *testing.T) {
	service, manager := newTestService()
	older := manager.CreateConversation()
	manager.CreateConversation()

	conv, err := service.SwitchConversation("2")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if conv.ID != older || manager.CurrentConversationID() != older {
		t.Errorf("Expected %s selected, got %s", older, manager.CurrentConversationID())
	}

	if _, err := service.SwitchConversation("9"); err == nil {
		t.Error("Expected error for unknown position")
	}
	if manager.CurrentConversationID() != older {
		t.Error("Failed switch should keep the selection")
	}
}

// Test GetConversationMessages
func TestGetConversationMessages(t *testing.T) {
	service, manager := newTestService()

	if _, err := service.GetConversationMessages(); !errors.Is(err, ErrNoConversationSelected) {
		t.Errorf("Expected ErrNoConversationSelected, got %v", err)
	}

	manager.AppendMessage(db.RoleUser, "hello")
	manager.AppendMessage(db.RoleAssistant, "hi")

	messages, err := service.GetConversationMessages()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(messages) != 2 || messages[0].Content != "hello" || messages[1].Content != "hi" {
		t.Errorf("Unexpected messages: %+v", messages)
	}
}

// Test DeleteConversation
func TestDeleteConversation(t *testing.T) {
	t.Run("current when ref empty", func(t *testing.T) {
		service, manager := newTestService()
		older := manager.CreateConversation()
		newer := manager.CreateConversation()

		deleted, err := service.DeleteConversation("")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if deleted.ID != newer {
			t.Errorf("Expected %s deleted, got %s", newer, deleted.ID)
		}
		if manager.CurrentConversationID() != older {
			t.Errorf("Expected head %s selected, got %s", older, manager.CurrentConversationID())
		}
	})

	t.Run("by position keeps selection", func(t *testing.T) {
		service, manager := newTestService()
		older := manager.CreateConversation()
		newer := manager.CreateConversation()

		if _, err := service.DeleteConversation("2"); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if _, ok := manager.Conversation(older); ok {
			t.Error("Expected older conversation to be removed")
		}
		if manager.CurrentConversationID() != newer {
			t.Errorf("Expected selection to stay %s, got %s", newer, manager.CurrentConversationID())
		}
	})

	t.Run("nothing selected", func(t *testing.T) {
		service, _ := newTestService()
		if _, err := service.DeleteConversation(""); !errors.Is(err, ErrNoConversationSelected) {
			t.Errorf("Expected ErrNoConversationSelected, got %v", err)
		}
	})

	t.Run("unknown ref", func(t *testing.T) {
		service, manager := newTestService()
		manager.CreateConversation()
		if _, err := service.DeleteConversation("nope"); !errors.Is(err, ErrConversationNotFound) {
			t.Errorf("Expected ErrConversationNotFound, got %v", err)
		}
		if len(manager.Conversations()) != 1 {
			t.Error("Expected conversation list unchanged")
		}
	})
}

// Test FormatMessageTime
func TestFormatMessageTime(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{name: "today", t: time.Date(2025, 3, 14, 9, 5, 0, 0, time.UTC), want: "09:05"},
		{name: "yesterday", t: time.Date(2025, 3, 13, 23, 59, 0, 0, time.UTC), want: "Yesterday, 23:59"},
		{name: "this week", t: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), want: "Mon, 08:00"},
		{name: "older", t: time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC), want: "Feb 1, 12:00"},
		{name: "across new year", t: time.Date(2024, 12, 31, 7, 30, 0, 0, time.UTC), want: "Dec 31, 07:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatMessageTime(tt.t, fixedNow); got != tt.want {
				t.Errorf("FormatMessageTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Test TruncateText
func TestTruncateText(t *testing.T) {
	tests := []struct {
		text   string
		length int
		want   string
	}{
		{text: "short", length: 25, want: "short"},
		{text: "exactly five", length: 12, want: "exactly five"},
		{text: "abcdef", length: 3, want: "abc..."},
		{text: "héllo wörld", length: 5, want: "héllo..."},
	}

	for _, tt := range tests {
		if got := TruncateText(tt.text, tt.length); got != tt.want {
			t.Errorf("TruncateText(%q, %d) = %q, want %q", tt.text, tt.length, got, tt.want)
		}
	}
}
