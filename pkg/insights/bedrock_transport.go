package insights

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockTransport calls a model through Amazon Bedrock's Converse API.
// Used when the deployment runs inside AWS and prefers Bedrock's
// provisioned-throughput and IAM-scoped access over a raw API key.
type BedrockTransport struct {
	client *bedrockruntime.Client
}

// NewBedrockTransport wraps an already-configured bedrockruntime client.
func NewBedrockTransport(client *bedrockruntime.Client) *BedrockTransport {
	return &BedrockTransport{client: client}
}

// Converse sends the composed prompt as a single user turn through
// Bedrock's provider-agnostic Converse operation.
func (t *BedrockTransport) Converse(ctx context.Context, req ConverseRequest) (ConverseResponse, error) {
	var messages []brtypes.Message
	for _, m := range req.Messages {
		messages = append(messages, brtypes.Message{
			Role:    brtypes.ConversationRoleUser,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m}},
		})
	}

	maxTokens := int32(req.Params.MaxOutputTokens)
	temperature := float32(req.Params.Temperature)
	topP := float32(req.Params.TopP)

	out, err := t.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(req.ModelID),
		Messages: messages,
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: req.SystemText},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(maxTokens),
			Temperature: aws.Float32(temperature),
			TopP:        aws.Float32(topP),
		},
	})
	if err != nil {
		return ConverseResponse{}, fmt.Errorf("bedrock converse: %w", err)
	}

	response, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return ConverseResponse{}, fmt.Errorf("bedrock converse: unexpected output shape")
	}

	var text string
	for _, block := range response.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text += textBlock.Value
		}
	}
	return ConverseResponse{OutputText: text}, nil
}
