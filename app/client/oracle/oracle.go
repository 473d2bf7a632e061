package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"grapebot/app/config"

	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/callbacks"
)

const maxReasonDuration = 30 * time.Second

// Invoker is the narrow contract the engine consumes. The oracle's output is
// free-form text and never trusted to be well-formed.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	callback    callbacks.Handler
}

var _ Invoker = (*Client)(nil)

func NewClient(cfg config.ModelConfig, temperature float32) *Client {
	clientConfig := openai.DefaultConfig(cfg.Token)
	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: maxReasonDuration,
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		temperature: temperature,
		callback:    LogCallbackHandler{},
	}
}

func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, maxReasonDuration)
	defer cancel()

	c.callback.HandleLLMStart(ctx, []string{prompt})

	aiResponse, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature:         c.temperature,
			MaxCompletionTokens: 10000,
		},
	)
	if err != nil {
		c.callback.HandleLLMError(ctx, err)
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return "", fmt.Errorf("no chat completion found")
	}

	return aiResponse.Choices[0].Message.Content, nil
}
