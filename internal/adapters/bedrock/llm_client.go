package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

const anthropicVersion = "bedrock-2023-05-31"

// ModelInvoker is the part of the Bedrock runtime client the completer needs
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient implements core.Completer using Amazon Bedrock
type BedrockClient struct {
	client      ModelInvoker
	modelID     string
	maxTokens   int
	temperature float32
	topP        float32
	logger      *zap.Logger
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	Temperature      float32         `json:"temperature"`
	TopP             float32         `json:"top_p"`
}

type claudeResponse struct {
	Content    []claudeContent `json:"content"`
	StopReason string          `json:"stop_reason"`
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client ModelInvoker,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *BedrockClient {
	return &BedrockClient{
		client:      client,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		logger:      logger,
	}
}

// Complete sends the system prompt and conversation to the model and returns the reply text
func (c *BedrockClient) Complete(ctx context.Context, system string, messages []core.Message) (string, error) {
	var payload []byte
	var err error

	if c.isAnthropicModel() {
		req := claudeRequest{
			AnthropicVersion: anthropicVersion,
			MaxTokens:        c.maxTokens,
			System:           system,
			Temperature:      c.temperature,
			TopP:             c.topP,
		}
		for _, m := range messages {
			req.Messages = append(req.Messages, claudeMessage{
				Role:    m.Role,
				Content: []claudeContent{{Type: "text", Text: m.Content}},
			})
		}
		payload, err = json.Marshal(req)
	} else if c.isAmazonTitanModel() {
		// Titan takes a single prompt
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": flatten(system, messages),
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		return "", fmt.Errorf("unsupported Bedrock model: %s", c.modelID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	var text string
	if c.isAnthropicModel() {
		var claudeResp claudeResponse
		if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		var b strings.Builder
		for _, part := range claudeResp.Content {
			if part.Type == "text" {
				b.WriteString(part.Text)
			}
		}
		text = b.String()
		c.logger.Debug("Bedrock completion",
			zap.String("model", c.modelID),
			zap.String("stop_reason", claudeResp.StopReason),
			zap.Int("length", len(text)))
	} else {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		text = titanResp.Results[0].OutputText
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty completion from %s", c.modelID)
	}
	return text, nil
}

// Close releases the client; the AWS client holds nothing that needs closing
func (c *BedrockClient) Close() error {
	return nil
}

// isAnthropicModel checks if the model (or inference profile) is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.Contains(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}

// flatten renders a conversation as one prompt for single-prompt models
func flatten(system string, messages []core.Message) string {
	title := cases.Title(language.English)
	var b strings.Builder
	b.WriteString(system)
	for _, m := range messages {
		fmt.Fprintf(&b, "\n\n%s: %s", title.String(m.Role), m.Content)
	}
	b.WriteString("\n\nAssistant:")
	return b.String()
}
