package ai

import (
	"context"
	"fmt"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cloneplan/internal/config"
)

// openAIText generates prose through an OpenAI-compatible chat endpoint.
type openAIText struct {
	llm      *openai.LLM
	model    string
	recorder UsageRecorder
	logger   *zap.Logger
}

func newOpenAIText(cfg config.AIConfig, recorder UsageRecorder, logger *zap.Logger) (*openAIText, error) {
	llm, err := openai.New(
		openai.WithToken(cfg.APIKey.Value()),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.TextModel),
	)
	if err != nil {
		return nil, err
	}
	return &openAIText{
		llm:      llm,
		model:    cfg.TextModel,
		recorder: recorder,
		logger:   logger,
	}, nil
}

func (c *openAIText) GenerateText(ctx context.Context, taskID, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithTemperature(0.7))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if c.recorder != nil {
		// Token counts are not exposed by the single-prompt helper; a
		// chars/4 estimate keeps the usage ledger directionally useful.
		c.recorder.Record(ctx, Usage{
			APIType:   BackendOpenAI,
			Endpoint:  "chat",
			TokensIn:  len(prompt) / 4,
			TokensOut: len(out) / 4,
			TaskID:    taskID,
		})
	}

	c.logger.Debug("text generated",
		zap.String("task_id", taskID),
		zap.String("model", c.model),
		zap.Int("chars", len(out)))

	return out, nil
}

// openAIImage generates mockup images through the OpenAI images endpoint.
type openAIImage struct {
	client   *gopenai.Client
	model    string
	recorder UsageRecorder
	logger   *zap.Logger
}

func newOpenAIImage(cfg config.AIConfig, recorder UsageRecorder, logger *zap.Logger) *openAIImage {
	clientCfg := gopenai.DefaultConfig(cfg.APIKey.Value())
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openAIImage{
		client:   gopenai.NewClientWithConfig(clientCfg),
		model:    cfg.ImageModel,
		recorder: recorder,
		logger:   logger,
	}
}

func (c *openAIImage) GenerateImage(ctx context.Context, taskID, prompt string) (string, error) {
	resp, err := c.client.CreateImage(ctx, gopenai.ImageRequest{
		Prompt:         prompt,
		Model:          c.model,
		N:              1,
		Size:           gopenai.CreateImageSize1024x1024,
		ResponseFormat: gopenai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("image generation returned no data")
	}

	if c.recorder != nil {
		c.recorder.Record(ctx, Usage{
			APIType:  BackendOpenAI,
			Endpoint: "image",
			TaskID:   taskID,
		})
	}

	c.logger.Debug("image generated",
		zap.String("task_id", taskID),
		zap.String("model", c.model))

	return resp.Data[0].URL, nil
}
