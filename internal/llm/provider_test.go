package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"auth", fmt.Errorf("call: %w", ErrAuth), KindFatal},
		{"quota", ErrQuotaExceeded, KindFatal},
		{"rate limit", ErrRateLimited, KindTransient},
		{"timeout", ErrTimeout, KindTransient},
		{"network", ErrNetwork, KindTransient},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"net error", &net.OpError{Op: "dial", Err: errors.New("refused")}, KindTransient},
		{"other", errors.New("boom"), KindUnknown},
		{"canceled", context.Canceled, KindUnknown},
		{"already typed", &ProviderError{Kind: KindFatal, Err: ErrAuth}, KindFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestStatusError(t *testing.T) {
	assert.ErrorIs(t, StatusError(http.StatusUnauthorized), ErrAuth)
	assert.ErrorIs(t, StatusError(http.StatusForbidden), ErrAuth)
	assert.ErrorIs(t, StatusError(http.StatusPaymentRequired), ErrQuotaExceeded)
	assert.ErrorIs(t, StatusError(http.StatusTooManyRequests), ErrRateLimited)
	assert.ErrorIs(t, StatusError(http.StatusGatewayTimeout), ErrTimeout)
	assert.ErrorIs(t, StatusError(http.StatusBadGateway), ErrNetwork)
	assert.NoError(t, StatusError(http.StatusBadRequest))
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{Kind: KindTransient, Attempts: 3, Err: ErrTimeout}
	assert.Equal(t, "transient provider error after 3 attempt(s): provider timeout", err.Error())
	assert.Equal(t, "fatal", KindFatal.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestUnconfiguredProviderIsFatal(t *testing.T) {
	g := NewGuard(Unconfigured, GuardConfig{MaxAttempts: 3})
	got, err := g.Invoke(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrFatalProvider)
	assert.Equal(t, 1, got.Attempts)
}

func TestLangChainProviderWithFakeModel(t *testing.T) {
	p := NewLangChainProvider(fake.NewFakeLLM([]string{"greeting", "menu_inquiry"}))

	first, err := p.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "greeting", first)

	second, err := p.Complete(context.Background(), "menu?")
	require.NoError(t, err)
	assert.Equal(t, "menu_inquiry", second)
}

func TestOpenAIProviderRequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(OpenAIConfig{Model: "gpt-4o-mini"})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestOpenAIProviderClassifiesHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusServiceUnavailable, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer srv.Close()

			p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), "hi")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenAIProviderSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"checkout"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: srv.URL, MaxTokens: 16})
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), "I'm done")
	require.NoError(t, err)
	assert.Equal(t, "checkout", text)
}

func TestAzureProviderRequiresConfig(t *testing.T) {
	_, err := NewAzureProvider(AzureConfig{Endpoint: "https://example.openai.azure.com"})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	next := ProviderFunc(func(context.Context, string) (string, error) {
		calls++
		return "", ErrNetwork
	})
	cfg := BreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
	b := NewBreakerProvider(next, cfg, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := b.Complete(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrNetwork)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, KindTransient, Classify(err))
	assert.Equal(t, 2, calls)
}

func TestBreakerIgnoresAuthFailures(t *testing.T) {
	next := ProviderFunc(func(context.Context, string) (string, error) {
		return "", ErrAuth
	})
	b := NewBreakerProvider(next, BreakerConfig{Name: "auth", MinRequests: 1, FailureThreshold: 0.1}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Complete(context.Background(), "hi")
		assert.ErrorIs(t, err, ErrAuth)
	}
	assert.Equal(t, "closed", b.State())
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	b := NewBreakerProvider(ProviderFunc(func(context.Context, string) (string, error) {
		return "general", nil
	}), DefaultBreakerConfig("ok"), nil)

	text, err := b.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "general", text)
}
