package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"homoxion/internal/core"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
	ollamaHTTPTimeout  = 60 * time.Second
)

type OllamaClassifier struct {
	config     *core.LLMConfig
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
}

type OllamaRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type OllamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaClassifier(config *core.LLMConfig, logger *zap.Logger) (*OllamaClassifier, error) {
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	return &OllamaClassifier{
		config:     config,
		logger:     logger.Named("ollama"),
		httpClient: &http.Client{Timeout: ollamaHTTPTimeout},
		baseURL:    baseURL,
	}, nil
}

func (o *OllamaClassifier) Name() string {
	return ProviderOllama
}

func (o *OllamaClassifier) Classify(ctx context.Context, text string) ([]core.Label, error) {
	text = prepareInput(text)
	if text == "" {
		return []core.Label{}, nil
	}

	model := o.config.Model
	if model == "" {
		model = defaultOllamaModel
	}

	jsonData, err := json.Marshal(OllamaRequest{
		Model:  model,
		System: classifyPrompt,
		Prompt: text,
		Stream: false,
		Format: "json",
		Options: map[string]any{
			"temperature": defaultTemperature,
			"num_predict": maxTokensClassify,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Ollama API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama API returned status %d", resp.StatusCode)
	}

	var ollamaResp OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama response: %w", err)
	}

	o.logger.Debug("Ollama response received", zap.String("content", ollamaResp.Response))

	return parseLabels(ollamaResp.Response)
}
