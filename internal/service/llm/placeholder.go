package llm

import (
	"context"
	"errors"
	"math/rand"
	"mindmeld/internal/config"
	"mindmeld/internal/logger"
	"mindmeld/internal/repository/db"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrModelNotLoaded is returned by Generate before LoadModel has completed
var ErrModelNotLoaded = errors.New("model not loaded")

// fillerTemperature is the temperature above which a filler may be appended
const fillerTemperature = 0.7

// Ensure PlaceholderProvider implements Provider and Loader
var (
	_ Provider = (*PlaceholderProvider)(nil)
	_ Loader   = (*PlaceholderProvider)(nil)
)

// PlaceholderProvider simulates a local model: it "loads" after a delay and
// answers by keyword matching against a canned-response catalogue
type PlaceholderProvider struct {
	responses *config.ResponsesConfig
	loadDelay time.Duration
	thinkMin  time.Duration
	thinkMax  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	rng     *rand.Rand
	loaded  bool
	loading chan struct{}
}

// PlaceholderOption configures a PlaceholderProvider
type PlaceholderOption func(*PlaceholderProvider)

// WithSeed makes reply selection deterministic
func WithSeed(seed int64) PlaceholderOption {
	return func(p *PlaceholderProvider) { p.rng = rand.New(rand.NewSource(seed)) }
}

// WithNow replaces the clock used for the {time} placeholder
func WithNow(now func() time.Time) PlaceholderOption {
	return func(p *PlaceholderProvider) { p.now = now }
}

// NewPlaceholderProvider creates a provider with the given timings and catalogue.
// A nil catalogue uses config.DefaultResponsesConfig.
func NewPlaceholderProvider(providerConfig config.ProviderConfig, responses *config.ResponsesConfig, opts ...PlaceholderOption) *PlaceholderProvider {
	if responses == nil {
		responses = config.DefaultResponsesConfig()
	}

	p := &PlaceholderProvider{
		responses: responses,
		loadDelay: providerConfig.LoadDelay,
		thinkMin:  providerConfig.ThinkMin,
		thinkMax:  providerConfig.ThinkMax,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadModel simulates loading. Callers arriving while a load is in flight
// wait for the same load; cancelling ctx stops the wait, not the load.
func (p *PlaceholderProvider) LoadModel(ctx context.Context) error {
	p.mu.Lock()
	if p.loaded {
		p.mu.Unlock()
		return nil
	}
	if p.loading == nil {
		p.loading = make(chan struct{})
		logger.Log.WithField("delay", p.loadDelay).Info("Starting model loading")
		go p.load(p.loading)
	}
	done := p.loading
	p.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PlaceholderProvider) load(done chan struct{}) {
	if p.loadDelay > 0 {
		time.Sleep(p.loadDelay)
	}

	p.mu.Lock()
	p.loaded = true
	p.mu.Unlock()
	close(done)

	logger.Log.Info("Model loading completed")
}

// IsModelLoaded reports whether LoadModel has completed
func (p *PlaceholderProvider) IsModelLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Generate waits a simulated thinking time and returns a canned reply
func (p *PlaceholderProvider) Generate(ctx context.Context, prompt string, settings db.ModelSettings) (string, error) {
	if !p.IsModelLoaded() {
		return "", ErrModelNotLoaded
	}

	logger.Log.WithFields(logrus.Fields{
		"temperature": settings.Temperature,
		"max_tokens":  settings.MaxTokens,
	}).Debug("Generating response")

	timer := time.NewTimer(p.thinkingTime())
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return p.reply(prompt, settings.Temperature), nil
}

func (p *PlaceholderProvider) thinkingTime() time.Duration {
	spread := p.thinkMax - p.thinkMin
	if spread <= 0 {
		return p.thinkMin
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.thinkMin + time.Duration(p.rng.Int63n(int64(spread)+1))
}

// reply picks the first rule whose keyword occurs in the lower-cased prompt,
// falling back to a random default, and may append a filler when hot
func (p *PlaceholderProvider) reply(prompt string, temperature float64) string {
	lower := strings.ToLower(prompt)

	p.mu.Lock()
	defer p.mu.Unlock()

	response := ""
	for _, rule := range p.responses.Rules {
		if matchesAny(lower, rule.Keywords) {
			response = rule.Reply
			break
		}
	}
	if response == "" && len(p.responses.Fallbacks) > 0 {
		response = p.responses.Fallbacks[p.rng.Intn(len(p.responses.Fallbacks))]
	}
	response = strings.ReplaceAll(response, "{time}", p.now().Format(time.Kitchen))

	if temperature > fillerTemperature && len(p.responses.Fillers) > 0 && p.rng.Float64() > 0.5 {
		response += p.responses.Fillers[p.rng.Intn(len(p.responses.Fillers))]
	}
	return response
}

func matchesAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
