package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind is the Guard's classification of a provider failure
type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinels matched by ProviderError through errors.Is
var (
	ErrTransientProvider = errors.New("transient provider error")
	ErrFatalProvider     = errors.New("fatal provider error")
	ErrUnknownProvider   = errors.New("unknown provider error")
)

// ProviderError is the only error type the Guard returns
type ProviderError struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *ProviderError) Is(target error) bool {
	switch e.Kind {
	case KindTransient:
		return target == ErrTransientProvider
	case KindFatal:
		return target == ErrFatalProvider
	default:
		return target == ErrUnknownProvider
	}
}

// Classify decides the Kind of a raw provider failure
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrAuth), errors.Is(err, ErrQuotaExceeded):
		return KindFatal
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrNetwork),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindUnknown
}
