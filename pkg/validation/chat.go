package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mindmeld/internal/repository/db"
)

// Settings field names accepted by ParseSettingsField
const (
	FieldTemperature = "temperature"
	FieldTopP        = "topP"
	FieldMaxTokens   = "maxTokens"
	FieldUseHistory  = "useHistory"
)

// Advisory ranges for model settings
const (
	MinTemperature = 0.0
	MaxTemperature = 1.0
	MinTopP        = 0.0
	MaxTopP        = 1.0
	MinMaxTokens   = 100
	MaxMaxTokens   = 2000
)

// ChatRequestValidator validates chat-related input from the presentation layer
type ChatRequestValidator struct{}

// NewChatRequestValidator creates a new ChatRequestValidator
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{}
}

// NormalizeMessage trims surrounding whitespace and rejects empty messages
func (v *ChatRequestValidator) NormalizeMessage(message string) (string, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "", errors.New("message cannot be empty")
	}
	return trimmed, nil
}

// ValidateTemperature validates the temperature parameter
func (v *ChatRequestValidator) ValidateTemperature(temperature *float64) error {
	if temperature == nil {
		return nil // Temperature is optional
	}

	if *temperature < MinTemperature || *temperature > MaxTemperature {
		return fmt.Errorf("temperature must be between %.0f and %.0f, got %.2f", MinTemperature, MaxTemperature, *temperature)
	}
	return nil
}

// ValidateTopP validates the topP parameter
func (v *ChatRequestValidator) ValidateTopP(topP *float64) error {
	if topP == nil {
		return nil
	}

	if *topP < MinTopP || *topP > MaxTopP {
		return fmt.Errorf("topP must be between %.0f and %.0f, got %.2f", MinTopP, MaxTopP, *topP)
	}
	return nil
}

// ValidateMaxTokens validates the maxTokens parameter
func (v *ChatRequestValidator) ValidateMaxTokens(maxTokens *int) error {
	if maxTokens == nil {
		return nil
	}

	if *maxTokens < MinMaxTokens || *maxTokens > MaxMaxTokens {
		return fmt.Errorf("maxTokens must be between %d and %d, got %d", MinMaxTokens, MaxMaxTokens, *maxTokens)
	}
	return nil
}

// ValidateSettingsPatch validates every field set in the patch
func (v *ChatRequestValidator) ValidateSettingsPatch(patch db.SettingsPatch) error {
	if err := v.ValidateTemperature(patch.Temperature); err != nil {
		return err
	}

	if err := v.ValidateTopP(patch.TopP); err != nil {
		return err
	}

	if err := v.ValidateMaxTokens(patch.MaxTokens); err != nil {
		return err
	}

	return nil
}

// ParseSettingsField builds a validated single-field patch from user input
func (v *ChatRequestValidator) ParseSettingsField(field, value string) (db.SettingsPatch, error) {
	var patch db.SettingsPatch

	switch strings.ToLower(field) {
	case strings.ToLower(FieldTemperature):
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return patch, fmt.Errorf("temperature must be a number, got %q", value)
		}
		patch.Temperature = &f
	case strings.ToLower(FieldTopP), "top_p":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return patch, fmt.Errorf("topP must be a number, got %q", value)
		}
		patch.TopP = &f
	case strings.ToLower(FieldMaxTokens), "max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return patch, fmt.Errorf("maxTokens must be an integer, got %q", value)
		}
		patch.MaxTokens = &n
	case strings.ToLower(FieldUseHistory), "use_history", "history":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return patch, fmt.Errorf("useHistory must be true or false, got %q", value)
		}
		patch.UseHistory = &b
	default:
		return patch, fmt.Errorf("unknown setting %q (want one of: %s, %s, %s, %s)", field, FieldTemperature, FieldTopP, FieldMaxTokens, FieldUseHistory)
	}

	if err := v.ValidateSettingsPatch(patch); err != nil {
		return db.SettingsPatch{}, err
	}
	return patch, nil
}
