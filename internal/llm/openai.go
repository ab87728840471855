package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"homoxion/internal/core"
)

const defaultOpenAIModel = "gpt-4o-mini"

type OpenAIClassifier struct {
	config *core.LLMConfig
	logger *zap.Logger
	client *openai.Client
}

func NewOpenAIClassifier(config *core.LLMConfig, logger *zap.Logger) (*OpenAIClassifier, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &OpenAIClassifier{
		config: config,
		logger: logger.Named("openai"),
		client: &client,
	}, nil
}

func (o *OpenAIClassifier) Name() string {
	return ProviderOpenAI
}

func (o *OpenAIClassifier) Classify(ctx context.Context, text string) ([]core.Label, error) {
	text = prepareInput(text)
	if text == "" {
		return []core.Label{}, nil
	}

	o.logger.Debug("Calling OpenAI for classification", zap.String("model", string(o.getModel())))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifyPrompt),
			openai.UserMessage(text),
		},
		Model:       o.getModel(),
		Temperature: openai.Float(defaultTemperature),
		MaxTokens:   openai.Int(maxTokensClassify),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	o.logger.Debug("OpenAI response received", zap.String("content", content))

	return parseLabels(content)
}

func (o *OpenAIClassifier) getModel() shared.ChatModel {
	if o.config.Model != "" {
		return o.config.Model
	}
	return defaultOpenAIModel
}
