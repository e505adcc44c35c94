package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

// AzureConfig configures an Azure OpenAI deployment
type AzureConfig struct {
	Endpoint    string
	APIKey      string
	Deployment  string
	Temperature float32
	MaxTokens   int32
}

// AzureProvider implements Provider on top of Azure OpenAI chat completions
type AzureProvider struct {
	client      *azopenai.Client
	deployment  string
	temperature float32
	maxTokens   int32
}

// NewAzureProvider creates an Azure OpenAI provider
func NewAzureProvider(cfg AzureConfig) (*AzureProvider, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.Deployment == "" {
		return nil, fmt.Errorf("%w: Azure OpenAI configuration missing: endpoint, api key and deployment are required", ErrAuth)
	}

	keyCredential := azcore.NewKeyCredential(cfg.APIKey)
	client, err := azopenai.NewClientWithKeyCredential(cfg.Endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	return &AzureProvider{
		client:      client,
		deployment:  cfg.Deployment,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete implements Provider
func (p *AzureProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		Messages: []azopenai.ChatRequestMessageClassification{
			&azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(prompt),
			},
		},
		MaxTokens:      to.Ptr(p.maxTokens),
		Temperature:    to.Ptr(p.temperature),
		DeploymentName: to.Ptr(p.deployment),
	}, nil)
	if err != nil {
		return "", classifyAzureError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return "", ErrEmptyResponse
	}
	return *resp.Choices[0].Message.Content, nil
}

func classifyAzureError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if class := StatusError(respErr.StatusCode); class != nil {
			return fmt.Errorf("%w: Azure OpenAI %s: %w", class, respErr.ErrorCode, err)
		}
	}
	return fmt.Errorf("Azure OpenAI completion failed: %w", err)
}
