package insights

import (
	"context"

	"github.com/cuemby/dd214pipeline/pkg/prompt"
)

// ConverseRequest is the single shape every LLM transport accepts: a
// transport adapter exposes one Converse operation regardless of which
// provider backs it.
type ConverseRequest struct {
	ModelID    string
	SystemText string
	Messages   []string
	Params     prompt.InferenceParams
}

// ConverseResponse is the transport's sole output.
type ConverseResponse struct {
	OutputText string
}

// Transport abstracts the model provider. AnthropicTransport and
// BedrockTransport are the two concrete implementations; Generator
// depends only on this interface so either (or a test fake) can be
// wired in.
type Transport interface {
	Converse(ctx context.Context, req ConverseRequest) (ConverseResponse, error)
}
