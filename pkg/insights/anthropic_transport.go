package insights

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicTransport calls the Anthropic Messages API directly. Used
// when the deployment is configured with a first-party Anthropic API
// key rather than Bedrock.
type AnthropicTransport struct {
	client anthropic.Client
}

// NewAnthropicTransport builds a Transport over the given API key.
func NewAnthropicTransport(apiKey string) *AnthropicTransport {
	return &AnthropicTransport{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Converse sends the composed prompt as a single user turn and returns
// the concatenated text blocks of the response.
func (t *AnthropicTransport) Converse(ctx context.Context, req ConverseRequest) (ConverseResponse, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m)))
	}

	resp, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(req.ModelID),
		MaxTokens:   int64(req.Params.MaxOutputTokens),
		Temperature: anthropic.Float(req.Params.Temperature),
		TopP:        anthropic.Float(req.Params.TopP),
		System: []anthropic.TextBlockParam{
			{Text: req.SystemText},
		},
		Messages: messages,
	})
	if err != nil {
		return ConverseResponse{}, fmt.Errorf("anthropic messages.new: %w", err)
	}

	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return ConverseResponse{OutputText: out}, nil
}
