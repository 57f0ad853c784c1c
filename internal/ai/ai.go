// Package ai provides the text, image and idea generation backends used by
// the analysis pipeline.
//
// Two backends exist: "openai" calls the hosted API (chat completions via
// langchaingo, images via the OpenAI images endpoint) and "stub" runs fully
// offline with deterministic output. The backend serving each feature is
// chosen per task from persisted settings and frozen into a Provider at task
// creation, so a running pipeline never observes settings changes.
package ai

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cloneplan/internal/config"
)

// Backend names accepted in settings and configuration.
const (
	BackendOpenAI = "openai"
	BackendStub   = "stub"
)

// TextGenerator produces prose from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, taskID, prompt string) (string, error)
}

// ImageGenerator produces a mockup image and returns a URL or file reference.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, taskID, prompt string) (string, error)
}

// Usage is one external API call's accounting record.
type Usage struct {
	APIType   string
	Endpoint  string
	TokensIn  int
	TokensOut int
	TaskID    string
}

// UsageRecorder receives usage records. Implementations must tolerate
// concurrent calls from multiple running tasks.
type UsageRecorder interface {
	Record(ctx context.Context, usage Usage)
}

// Selection names the backend serving each feature.
type Selection struct {
	Text  string `json:"text"`
	Image string `json:"image"`
	Ideas string `json:"ideas"`
}

// Provider is an immutable per-task binding of feature to backend.
type Provider struct {
	Text  TextGenerator
	Image ImageGenerator
	Ideas TextGenerator
}

// Registry holds all constructed backends and binds selections to providers.
type Registry struct {
	text   map[string]TextGenerator
	image  map[string]ImageGenerator
	logger *zap.Logger
}

// NewRegistry builds the available backends. The stub backend is always
// registered; the openai backend is registered when an API key is configured.
func NewRegistry(cfg config.AIConfig, recorder UsageRecorder, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		text:   make(map[string]TextGenerator),
		image:  make(map[string]ImageGenerator),
		logger: logger,
	}

	stub := NewStub()
	r.text[BackendStub] = stub
	r.image[BackendStub] = stub

	if cfg.APIKey.IsSet() {
		text, err := newOpenAIText(cfg, recorder, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build openai text backend: %w", err)
		}
		r.text[BackendOpenAI] = text
		r.image[BackendOpenAI] = newOpenAIImage(cfg, recorder, logger)
		logger.Info("openai backends registered",
			zap.String("text_model", cfg.TextModel),
			zap.String("image_model", cfg.ImageModel))
	}

	return r, nil
}

// Bind resolves a selection into a provider. Unknown or unavailable backend
// names fail rather than silently falling back.
func (r *Registry) Bind(sel Selection) (*Provider, error) {
	text, ok := r.text[sel.Text]
	if !ok {
		return nil, fmt.Errorf("text backend %q is not available", sel.Text)
	}
	image, ok := r.image[sel.Image]
	if !ok {
		return nil, fmt.Errorf("image backend %q is not available", sel.Image)
	}
	ideas, ok := r.text[sel.Ideas]
	if !ok {
		return nil, fmt.Errorf("ideas backend %q is not available", sel.Ideas)
	}
	return &Provider{Text: text, Image: image, Ideas: ideas}, nil
}
