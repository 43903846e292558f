package analysis

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAI implements the Analyzer interface using OpenAI chat completions
type OpenAI struct {
	client openai.Client
	model  shared.ChatModel
}

// NewOpenAI creates a new OpenAI Analyzer instance
func NewOpenAI(apiKey string, modelName string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if modelName == "" {
		modelName = "gpt-4"
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAI{
		client: client,
		model:  shared.ChatModel(modelName),
	}, nil
}

// AnalyzePayroll sends a single chat completion constrained to a JSON object
// and returns the reply content unmodified.
func (o *OpenAI) AnalyzePayroll(payrollText, receiptText string) (string, error) {
	ctx := context.Background()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(payrollText, receiptText)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling openai API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message.Content, nil
}

// Close closes the OpenAI analyzer (no-op for the HTTP client)
func (o *OpenAI) Close() error {
	return nil
}
