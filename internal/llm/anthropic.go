package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"homoxion/internal/core"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

type AnthropicClassifier struct {
	config *core.LLMConfig
	logger *zap.Logger
	client *anthropic.Client
}

func NewAnthropicClassifier(config *core.LLMConfig, logger *zap.Logger) (*AnthropicClassifier, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &AnthropicClassifier{
		config: config,
		logger: logger.Named("anthropic"),
		client: &client,
	}, nil
}

func (a *AnthropicClassifier) Name() string {
	return ProviderAnthropic
}

func (a *AnthropicClassifier) Classify(ctx context.Context, text string) ([]core.Label, error) {
	text = prepareInput(text)
	if text == "" {
		return []core.Label{}, nil
	}

	model := a.config.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokensClassify,
		System: []anthropic.TextBlockParam{{
			Text: classifyPrompt,
		}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		Temperature: anthropic.Float(defaultTemperature),
	})
	if err != nil {
		return nil, fmt.Errorf("Anthropic API call failed: %w", err)
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, fmt.Errorf("no response from Anthropic")
	}

	a.logger.Debug("Anthropic response received", zap.String("content", content.String()))

	return parseLabels(content.String())
}
