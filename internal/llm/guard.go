package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"shackbot/internal/logger"
)

// Attempt describes one call to the provider
type Attempt struct {
	Number   int
	Duration time.Duration
	Err      error
	Kind     Kind // meaningful only when Err != nil
}

// AttemptObserver sees every attempt the Guard makes, successful or not
type AttemptObserver interface {
	ObserveLLMAttempt(a Attempt)
}

// Completion is a successful Guard result
type Completion struct {
	Text     string
	Attempts int
}

// GuardConfig holds the retry policy
type GuardConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     Backoff
}

// DefaultGuardConfig is 20s per attempt, 3 attempts, 500ms..5s backoff
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Timeout:     20 * time.Second,
		MaxAttempts: 3,
		Backoff:     NewExponentialBackoff(500*time.Millisecond, 5*time.Second),
	}
}

// Guard wraps a Provider with a per-attempt timeout, retries for transient
// failures and typed errors. Callers only ever see *ProviderError.
type Guard struct {
	provider    Provider
	timeout     time.Duration
	maxAttempts int
	backoff     Backoff
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	observer    AttemptObserver
	logger      *zap.Logger
}

// GuardOption configures a Guard
type GuardOption func(*Guard)

// WithSleep replaces the wait between attempts
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) GuardOption {
	return func(g *Guard) { g.sleep = sleep }
}

// WithGuardClock injects the time source used for attempt durations
func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

// WithAttemptObserver registers an attempt observer
func WithAttemptObserver(o AttemptObserver) GuardOption {
	return func(g *Guard) { g.observer = o }
}

// WithGuardLogger sets the logger
func WithGuardLogger(l *zap.Logger) GuardOption {
	return func(g *Guard) { g.logger = l }
}

// NewGuard creates a Guard around provider
func NewGuard(provider Provider, cfg GuardConfig, opts ...GuardOption) *Guard {
	def := DefaultGuardConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Backoff == nil {
		cfg.Backoff = def.Backoff
	}

	g := &Guard{
		provider:    provider,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		sleep:       sleepContext,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logger.Component(g.logger, "llm_guard")
	return g
}

// Invoke completes prompt, retrying transient failures with backoff
func (g *Guard) Invoke(ctx context.Context, prompt string) (Completion, error) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		attempts = attempt
		start := g.now()
		text, err := g.call(ctx, prompt)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyResponse
		}

		kind := Classify(err)
		g.observe(Attempt{Number: attempt, Duration: g.now().Sub(start), Err: err, Kind: kind})

		if err == nil {
			g.logger.Debug("llm call succeeded", zap.Int("attempt", attempt))
			return Completion{Text: text, Attempts: attempt}, nil
		}
		lastErr = err

		if kind != KindTransient {
			g.logger.Warn("llm call failed",
				zap.Int("attempt", attempt),
				zap.String("kind", kind.String()),
				zap.Error(err),
			)
			return Completion{Attempts: attempt}, &ProviderError{Kind: kind, Attempts: attempt, Err: err}
		}
		if attempt == g.maxAttempts || ctx.Err() != nil {
			break
		}

		delay := g.backoff.Delay(attempt)
		g.logger.Warn("retrying llm call",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := g.sleep(ctx, delay); err != nil {
			break
		}
	}

	g.logger.Error("llm call exhausted retries", zap.Int("attempts", attempts), zap.Error(lastErr))
	return Completion{Attempts: attempts}, &ProviderError{Kind: KindTransient, Attempts: attempts, Err: lastErr}
}

// call runs one attempt and returns once the provider answers or the
// attempt's deadline passes, whichever is first.
func (g *Guard) call(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := g.provider.Complete(callCtx, prompt)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %w", ErrTimeout, r.err)
		}
		return r.text, r.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w after %s", ErrTimeout, g.timeout)
	}
}

func (g *Guard) observe(a Attempt) {
	if g.observer != nil {
		g.observer.ObserveLLMAttempt(a)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
