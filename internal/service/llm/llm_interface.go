package llm

import (
	"context"
	"mindmeld/internal/repository/db"
)

// Provider defines the interface for response providers (the placeholder
// canned-text provider, or a real inference backend)
type Provider interface {
	// Generate returns the reply to prompt. It may fail; callers recover.
	Generate(ctx context.Context, prompt string, settings db.ModelSettings) (string, error)
}

// Loader is implemented by providers that need to be loaded before use
type Loader interface {
	// LoadModel prepares the provider; concurrent and repeated calls are safe
	LoadModel(ctx context.Context) error

	// IsModelLoaded reports whether LoadModel has completed successfully
	IsModelLoaded() bool
}
