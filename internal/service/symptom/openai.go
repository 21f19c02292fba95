package symptom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAITimeout = 5 * time.Second

	extractPrompt = "Extract the medical symptoms mentioned in the user's message. " +
		"Reply with a JSON array of short lowercase symptom phrases and nothing else, " +
		`for example ["headache", "high fever"]. Reply with [] if there are none.`
)

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAIExtractor asks a chat completion model for the symptom phrases.
type OpenAIExtractor struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIExtractor(cfg OpenAIConfig) *OpenAIExtractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultOpenAITimeout
	}

	return &OpenAIExtractor{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (e *OpenAIExtractor) Extract(ctx context.Context, message string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("symptom extraction request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("symptom extraction returned no choices")
	}
	return parsePhraseArray(resp.Choices[0].Message.Content)
}

func parsePhraseArray(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("symptom extraction returned invalid JSON: %w", err)
	}

	phrases := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return phrases, nil
}
