package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/msulikowski96-cmd/cv2ai-opty/pkg/service/prompt"
)

// ErrExternalService marks failures of the upstream model API: unreachable
// endpoint, non-2xx response, or a response missing choices/message/content.
var ErrExternalService = errors.New("model api unavailable")

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// Default model for all analyses; CV generation uses the paid variant.
	DefaultModel = "qwen/qwen-2.5-72b-instruct:free"
	PaidModel    = "qwen/qwen-2.5-72b-instruct"
)

// Sampling parameters are fixed per task family, not user-configurable.
const (
	temperature      = 0.3
	topP             = 0.85
	frequencyPenalty = 0.1
	presencePenalty  = 0.1
)

// Client sends chat-completion requests to an OpenAI-wire-compatible
// endpoint. Upstream failures surface as ErrExternalService; the dispatcher
// decides where advisory fallback text is acceptable. Caller cancellation
// propagates unwrapped.
type Client struct {
	api          *openai.Client
	defaultModel string
}

func NewClient(apiKey, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:          openai.NewClientWithConfig(cfg),
		defaultModel: DefaultModel,
	}
}

// Complete runs one chat completion. model may be empty for the default.
// There are no retries.
func (c *Client) Complete(ctx context.Context, p prompt.Prompt, maxTokens int, model string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	var messages []openai.ChatCompletionMessage
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: p.User,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            model,
		Messages:         messages,
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		TopP:             topP,
		FrequencyPenalty: frequencyPenalty,
		PresencePenalty:  presencePenalty,
	})
	if err != nil {
		// Caller cancellation is not an upstream failure.
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrExternalService)
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("%w: empty message content", ErrExternalService)
	}
	return content, nil
}
