package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider failure classes. Adapters wrap their native errors with one of
// these so the Guard can decide whether a retry makes sense.
var (
	ErrTimeout       = errors.New("provider timeout")
	ErrRateLimited   = errors.New("provider rate limited")
	ErrAuth          = errors.New("provider authentication failed")
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	ErrNetwork       = errors.New("provider network error")
	ErrEmptyResponse = errors.New("empty response from provider")
)

// Provider completes a single prompt
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

// Complete implements Provider
func (f ProviderFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Unconfigured answers every prompt with ErrAuth. It stands in when no API
// key is available so conversations still get a configuration message.
var Unconfigured Provider = ProviderFunc(func(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: no API key configured", ErrAuth)
})

// StatusError maps an HTTP status code returned by a provider API to one of
// the failure classes above. It returns nil for codes it has no opinion on.
func StatusError(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuth
	case code == http.StatusPaymentRequired:
		return ErrQuotaExceeded
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code >= 500:
		return ErrNetwork
	}
	return nil
}
