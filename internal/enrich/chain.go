package enrich

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rachealIC/infra-review-cli/internal/finding"
)

// ErrNoProviders is returned by a chain with nothing to call.
var ErrNoProviders = errors.New("no text-generation provider configured")

// Chain tries providers in order until one succeeds. Each attempt gets its own
// timeout; a timeout or error moves straight to the next provider without retrying.
type Chain struct {
	providers []Provider
	timeout   time.Duration
}

// NewChain creates a fallback chain. A non-positive timeout defaults to 20s.
func NewChain(timeout time.Duration, providers ...Provider) *Chain {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Chain{providers: providers, timeout: timeout}
}

// Len returns the number of providers in the chain.
func (c *Chain) Len() int {
	return len(c.providers)
}

// Generate returns the first successful response. errs holds a ProviderError for
// every provider that failed before it, or for all of them on total failure.
func (c *Chain) Generate(ctx context.Context, prompt string) (text, provider string, errs []error) {
	if len(c.providers) == 0 {
		return "", "", []error{&finding.ProviderError{Provider: "chain", Err: ErrNoProviders}}
	}

	for _, p := range c.providers {
		if ctx.Err() != nil {
			errs = append(errs, &finding.ProviderError{Provider: p.Name(), Err: ctx.Err()})
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		out, err := p.Generate(callCtx, prompt)
		cancel()
		if err == nil {
			return out, p.Name(), errs
		}

		slog.Debug("Provider failed, falling back", "provider", p.Name(), "error", err)
		errs = append(errs, &finding.ProviderError{Provider: p.Name(), Err: err})
	}
	return "", "", errs
}
