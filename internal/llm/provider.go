// Package llm classifies free text with a configurable language model provider.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"homoxion/internal/core"
)

// Provider names accepted by NewClassifier.
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

const (
	defaultTemperature = 0.0
	maxTokensClassify  = 200
	// maxInputRunes truncates long video descriptions before they are sent
	maxInputRunes = 4000
)

const classifyPrompt = `You are a sentiment classifier for music video descriptions.
Classify the overall sentiment of the user text as POSITIVE or NEGATIVE.

Return JSON in this exact format:
{
  "labels": [
    {"label": "POSITIVE", "score": 0.98}
  ]
}

Rules:
- score: 0.0-1.0 confidence of the label
- Return exactly one label
- Respond with valid JSON only`

type labelResponse struct {
	Labels []core.Label `json:"labels"`
}

// NewClassifier selects the classifier for config.Provider. "none" or an empty
// provider selects the no-op classifier.
func NewClassifier(config *core.LLMConfig, logger *zap.Logger) (core.Classifier, error) {
	var (
		classifier core.Classifier
		err        error
	)

	switch strings.ToLower(config.Provider) {
	case ProviderOpenAI:
		classifier, err = NewOpenAIClassifier(config, logger)
	case ProviderAnthropic:
		classifier, err = NewAnthropicClassifier(config, logger)
	case ProviderOllama:
		classifier, err = NewOllamaClassifier(config, logger)
	case ProviderNone, "":
		return NoOpClassifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s classifier: %w", config.Provider, err)
	}

	return classifier, nil
}

// NoOpClassifier is used when no provider is configured.
type NoOpClassifier struct{}

func (NoOpClassifier) Classify(context.Context, string) ([]core.Label, error) {
	return []core.Label{}, nil
}

func (NoOpClassifier) Name() string {
	return ProviderNone
}

// prepareInput trims text and caps its length. An empty result means nothing to classify.
func prepareInput(text string) string {
	text = strings.TrimSpace(text)
	if runes := []rune(text); len(runes) > maxInputRunes {
		text = string(runes[:maxInputRunes])
	}
	return text
}

// parseLabels decodes the model answer. Code fences are stripped, labels are
// upper-cased, scores clamped to [0,1] and sorted by descending score.
func parseLabels(content string) ([]core.Label, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var response labelResponse
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}

	labels := make([]core.Label, 0, len(response.Labels))
	for _, label := range response.Labels {
		name := strings.ToUpper(strings.TrimSpace(label.Label))
		if name == "" {
			continue
		}
		score := label.Score
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		labels = append(labels, core.Label{Label: name, Score: score})
	}

	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Score > labels[j].Score
	})

	return labels, nil
}
