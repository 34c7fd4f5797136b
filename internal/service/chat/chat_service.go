package chat

import (
	"context"
	"errors"
	"fmt"
	"mindmeld/internal/logger"
	"mindmeld/internal/repository/db"
	"mindmeld/internal/service/llm"
	"mindmeld/internal/state"
	"mindmeld/pkg/validation"

	"github.com/sirupsen/logrus"
)

// FallbackResponse is appended as the assistant reply when the provider fails
const FallbackResponse = "Sorry, I encountered an error while generating a response. Please try again."

var (
	// ErrEmptyMessage is returned when the message is empty after trimming
	ErrEmptyMessage = errors.New("message cannot be empty")

	// ErrGenerationInProgress is returned when another reply is being generated
	ErrGenerationInProgress = errors.New("a response is already being generated")
)

// SendMessageResponse contains the result of sending a message
type SendMessageResponse struct {
	ConversationID string
	UserMessage    db.Message
	Reply          db.Message
	// Failed is true when Reply is FallbackResponse
	Failed bool
}

// ChatService handles the business logic for chat operations
type ChatService struct {
	manager   *state.Manager
	provider  llm.Provider
	validator *validation.ChatRequestValidator
}

// NewChatService creates a new ChatService
func NewChatService(manager *state.Manager, provider llm.Provider) *ChatService {
	return &ChatService{
		manager:   manager,
		provider:  provider,
		validator: validation.NewChatRequestValidator(),
	}
}

// SendMessage appends the user's message to the current conversation, asks
// the provider for a reply and appends it. A provider failure is not returned:
// the fallback text is appended instead and Failed is set.
func (s *ChatService) SendMessage(ctx context.Context, message string) (*SendMessageResponse, error) {
	content, err := s.validator.NormalizeMessage(message)
	if err != nil {
		return nil, ErrEmptyMessage
	}

	if !s.manager.IsModelLoaded() {
		return nil, llm.ErrModelNotLoaded
	}

	if !s.manager.BeginGeneration() {
		return nil, ErrGenerationInProgress
	}
	defer s.manager.SetGenerating(false)

	userMsg, conversationID := s.manager.AppendMessage(db.RoleUser, content)

	settings := s.manager.Settings()
	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"temperature":     settings.Temperature,
		"top_p":           settings.TopP,
		"max_tokens":      settings.MaxTokens,
	}).Info("Generating response")

	resp := &SendMessageResponse{
		ConversationID: conversationID,
		UserMessage:    userMsg,
	}

	text, err := s.provider.Generate(ctx, content, settings)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"error":           err,
		}).Warn("Response generation failed, using fallback")
		text = FallbackResponse
		resp.Failed = true
	}

	resp.Reply, _ = s.manager.AppendMessage(db.RoleAssistant, text)
	return resp, nil
}

// UpdateSettings validates patch and merges it into the model settings
func (s *ChatService) UpdateSettings(patch db.SettingsPatch) error {
	if err := s.validator.ValidateSettingsPatch(patch); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	s.manager.UpdateSettings(patch)
	return nil
}
