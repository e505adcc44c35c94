package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// GitHubModelsBaseURL is the OpenAI-compatible endpoint of GitHub Models
const GitHubModelsBaseURL = "https://models.inference.ai.azure.com"

// OpenAIConfig configures an OpenAI-compatible provider
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// LangChainProvider adapts any langchaingo model to Provider
type LangChainProvider struct {
	model llms.Model
	opts  []llms.CallOption
}

// NewLangChainProvider wraps model; opts are applied to every call
func NewLangChainProvider(model llms.Model, opts ...llms.CallOption) *LangChainProvider {
	return &LangChainProvider{model: model, opts: opts}
}

// NewOpenAIProvider builds a provider for OpenAI or any OpenAI-compatible API
func NewOpenAIProvider(cfg OpenAIConfig) (*LangChainProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrAuth)
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	var callOpts []llms.CallOption
	if cfg.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	return NewLangChainProvider(client, callOpts...), nil
}

// Complete implements Provider
func (p *LangChainProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, p.opts...)
	if err != nil {
		return "", classifyLangChainError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

var statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

// classifyLangChainError attaches a failure class to errors from the
// langchaingo OpenAI client, which reports HTTP failures only as text.
func classifyLangChainError(err error) error {
	if errors.Is(err, openai.ErrEmptyResponse) {
		return fmt.Errorf("%w: %w", ErrEmptyResponse, err)
	}
	if m := statusCodePattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		if class := StatusError(code); class != nil {
			return fmt.Errorf("%w: %w", class, err)
		}
	}
	return err
}
