package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// ErrUpstreamFailure wraps failed or unusable LLM responses. Callers treat
// these as a normal outcome of a best-effort collaborator, not as fatal.
var ErrUpstreamFailure = errors.New("upstream model call failed")

const defaultModelID = "anthropic.claude-3-sonnet-20240229-v1:0"

// BedrockInvoker is the slice of the Bedrock runtime client the services
// use; the real *bedrockruntime.Client satisfies it.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// invokeClaude sends a single-turn prompt to an Anthropic model on Bedrock
// and returns the text of the first content block.
func invokeClaude(ctx context.Context, client BedrockInvoker, modelID string, prompt string, maxTokens int) (string, error) {
	if modelID == "" {
		modelID = defaultModelID
	}

	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode model request: %w", err)
	}

	out, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to decode model response: %v", ErrUpstreamFailure, err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return "", fmt.Errorf("%w: model returned no content", ErrUpstreamFailure)
	}
	return resp.Content[0].Text, nil
}
