package llm

import (
	"context"
	"errors"
	"mindmeld/internal/config"
	"mindmeld/internal/repository/db"
	"sync"
	"testing"
	"time"
)

func newInstantProvider(t *testing.T, responses *config.ResponsesConfig, opts ...PlaceholderOption) *PlaceholderProvider {
	t.Helper()
	p := NewPlaceholderProvider(config.ProviderConfig{}, responses, opts...)
	if err := p.LoadModel(context.Background()); err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	return p
}

func coolSettings() db.ModelSettings {
	s := db.DefaultModelSettings()
	s.Temperature = 0.5
	return s
}

func TestPlaceholderProvider_NotLoaded(t *testing.T) {
	p := NewPlaceholderProvider(config.ProviderConfig{LoadDelay: time.Hour}, nil)

	_, err := p.Generate(context.Background(), "hello", coolSettings())
	if !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Generate() error = %v, want ErrModelNotLoaded", err)
	}
	if p.IsModelLoaded() {
		t.Error("IsModelLoaded() should be false before LoadModel")
	}
}

func TestPlaceholderProvider_LoadModelConcurrent(t *testing.T) {
	p := NewPlaceholderProvider(config.ProviderConfig{LoadDelay: 20 * time.Millisecond}, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.LoadModel(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("LoadModel() error = %v", err)
		}
	}
	if !p.IsModelLoaded() {
		t.Error("IsModelLoaded() should be true after LoadModel")
	}
	// Already loaded returns immediately
	if err := p.LoadModel(context.Background()); err != nil {
		t.Errorf("Second LoadModel() error = %v", err)
	}
}

func TestPlaceholderProvider_LoadModelCanceled(t *testing.T) {
	p := NewPlaceholderProvider(config.ProviderConfig{LoadDelay: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.LoadModel(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("LoadModel() error = %v, want context.Canceled", err)
	}
}

func TestPlaceholderProvider_KeywordRules(t *testing.T) {
	defaults := config.DefaultResponsesConfig()
	fixed := time.Date(2025, 1, 1, 15, 4, 0, 0, time.Local)
	p := newInstantProvider(t, nil, WithSeed(1), WithNow(func() time.Time { return fixed }))

	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{name: "greeting", prompt: "Hello!", want: defaults.Rules[0].Reply},
		{name: "greeting case insensitive", prompt: "HI there", want: defaults.Rules[0].Reply},
		{name: "how are you", prompt: "how are you doing", want: defaults.Rules[1].Reply},
		{name: "name", prompt: "What is your name?", want: defaults.Rules[2].Reply},
		{name: "weather", prompt: "weather tomorrow", want: defaults.Rules[3].Reply},
		{name: "time placeholder", prompt: "what time is it", want: "According to your system clock, the local time is 3:04PM."},
		{name: "help", prompt: "I need help", want: defaults.Rules[6].Reply},
		{name: "thanks", prompt: "thank you", want: defaults.Rules[8].Reply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Generate(context.Background(), tt.prompt, coolSettings())
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.prompt, got, tt.want)
			}
		})
	}
}

func TestPlaceholderProvider_Fallback(t *testing.T) {
	p := newInstantProvider(t, nil, WithSeed(7))

	got, err := p.Generate(context.Background(), "quantum chromodynamics", coolSettings())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	found := false
	for _, f := range config.DefaultResponsesConfig().Fallbacks {
		if got == f {
			found = true
		}
	}
	if !found {
		t.Errorf("Generate() = %q, want one of the fallback replies", got)
	}
}

func TestPlaceholderProvider_FillerOnlyWhenHot(t *testing.T) {
	responses := &config.ResponsesConfig{
		Rules:     []config.ResponseRule{{Keywords: []string{"ping"}, Reply: "pong"}},
		Fallbacks: []string{"?"},
		Fillers:   []string{" filler"},
	}
	p := newInstantProvider(t, responses, WithSeed(42))

	cool := coolSettings()
	hot := db.DefaultModelSettings()
	hot.Temperature = 0.9

	sawFiller := false
	for i := 0; i < 50; i++ {
		got, _ := p.Generate(context.Background(), "ping", cool)
		if got != "pong" {
			t.Fatalf("Cool reply = %q, want pong", got)
		}

		got, _ = p.Generate(context.Background(), "ping", hot)
		switch got {
		case "pong":
		case "pong filler":
			sawFiller = true
		default:
			t.Fatalf("Hot reply = %q", got)
		}
	}
	if !sawFiller {
		t.Error("Expected at least one filler in 50 hot replies")
	}
}

func TestPlaceholderProvider_ThinkingHonorsContext(t *testing.T) {
	p := NewPlaceholderProvider(config.ProviderConfig{ThinkMin: time.Hour, ThinkMax: time.Hour}, nil)
	if err := p.LoadModel(context.Background()); err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Generate(ctx, "hello", coolSettings())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Generate() error = %v, want DeadlineExceeded", err)
	}
}

func TestPlaceholderProvider_ThinkingTimeWithinBounds(t *testing.T) {
	p := NewPlaceholderProvider(config.ProviderConfig{ThinkMin: time.Second, ThinkMax: 3 * time.Second}, nil, WithSeed(3))
	for i := 0; i < 100; i++ {
		d := p.thinkingTime()
		if d < time.Second || d > 3*time.Second {
			t.Fatalf("thinkingTime() = %v, want within [1s,3s]", d)
		}
	}
}

func TestMatchesAny(t *testing.T) {
	if !matchesAny("tell me about tensorflow", []string{"TensorFlow"}) {
		t.Error("Keywords should match case-insensitively")
	}
	if matchesAny("this is fine", []string{"hi "}) {
		t.Error("'hi ' should not match inside 'this '")
	}
}
