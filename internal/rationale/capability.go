// Package rationale produces the natural-language explanation attached to
// each requirement result.
package rationale

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgallion1/docaudit/internal/model"
	"github.com/dgallion1/docaudit/internal/retry"
)

// Generator is an external text-generation backend.
type Generator interface {
	Generate(ctx context.Context, requirement string, snippets []string) (string, error)
}

// Capability always yields a rationale; it never fails.
type Capability interface {
	Rationale(ctx context.Context, requirement string, snippets []string) string
	Enabled() bool
}

// Options tune an enabled capability.
type Options struct {
	Timeout       time.Duration // Per-requirement bound across all attempts.
	RatePerSec    float64       // 0 disables rate limiting.
	Retry         retry.Policy
	SnippetBudget int
	Log           *slog.Logger
}

// Disabled returns a capability that only ever uses the fallback text.
func Disabled(snippetBudget int) Capability {
	return disabled{budget: snippetBudget}
}

type disabled struct {
	budget int
}

func (d disabled) Rationale(_ context.Context, requirement string, snippets []string) string {
	return Fallback(requirement, snippets, d.budget)
}

func (disabled) Enabled() bool { return false }

// Enabled wraps gen. Errors, timeouts and empty output degrade to Fallback.
func Enabled(gen Generator, opts Options) Capability {
	e := &enabled{gen: gen, opts: opts}
	if opts.Log == nil {
		e.opts.Log = slog.Default()
	}
	if opts.RatePerSec > 0 {
		burst := int(opts.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return e
}

type enabled struct {
	gen     Generator
	opts    Options
	limiter *rate.Limiter
}

func (e *enabled) Enabled() bool { return true }

func (e *enabled) Rationale(ctx context.Context, requirement string, snippets []string) string {
	text, err := e.generate(ctx, requirement, snippets)
	if err != nil {
		e.opts.Log.Warn("rationale generation failed, using fallback",
			"requirement", requirement, "error", &model.RationaleError{Err: err})
		return Fallback(requirement, snippets, e.opts.SnippetBudget)
	}
	return text
}

func (e *enabled) generate(ctx context.Context, requirement string, snippets []string) (string, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	var text string
	err := retry.Do(ctx, e.opts.Retry, IsRetryable, func(ctx context.Context) error {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		out, err := e.gen.Generate(ctx, requirement, snippets)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", err
	}
	if err := validateOutput(text); err != nil {
		return "", err
	}
	return text, nil
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}
