package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

// OpenAIClient implements core.Completer using the OpenAI chat API
type OpenAIClient struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

// NewOpenAIClient creates a new OpenAI client; an empty baseURL uses the public API
func NewOpenAIClient(
	apiKey string,
	baseURL string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIClient {
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// Complete sends the system prompt and conversation and returns the reply text
func (c *OpenAIClient) Complete(ctx context.Context, system string, messages []core.Message) (string, error) {
	chat := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chat = append(chat, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == core.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		chat = append(chat, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    chat,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty completion from %s", c.modelName)
	}

	c.logger.Debug("OpenAI completion",
		zap.String("model", c.modelName),
		zap.String("id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return text, nil
}

// Close releases the client
func (c *OpenAIClient) Close() error {
	return nil
}
