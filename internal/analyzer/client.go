package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
)

// Completer produces a chat completion for a system/user prompt pair.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// GroqClient talks to an OpenAI-compatible completion API. The base
// URL defaults to Groq but any compatible endpoint works.
type GroqClient struct {
	client *openai.Client
	model  string
}

func NewGroqClient(apiKey, baseURL, model string) *GroqClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &GroqClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete issues the chat completion with exponential backoff, since
// free-tier rate limits are routine with batch analysis.
func (c *GroqClient) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	var content string

	backoff := retry.WithMaxRetries(3, retry.NewExponential(15*time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			MaxTokens:   maxTokens,
			Temperature: 0.3,
		})
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
				return retry.RetryableError(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("completion returned no choices")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return content, nil
}
