package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rostersync/internal/identity/metrics"
	"rostersync/internal/upstream"
	"rostersync/pkg/platform/circuit"
	"rostersync/pkg/platform/sentinel"
)

// Guarded fails fast while the provider is failing so an outage does not
// hold every ingestion open until its deadline.
type Guarded struct {
	next    Provider
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewGuarded wraps next with breaker. Only retryable failures count
// against the breaker; malformed responses are the provider answering.
// Failures after the caller's context ended are not counted either.
func NewGuarded(next Provider, breaker *circuit.Breaker, logger *slog.Logger, m *metrics.Metrics) *Guarded {
	return &Guarded{next: next, breaker: breaker, logger: logger, metrics: m}
}

func (g *Guarded) Name() string {
	return g.next.Name()
}

func (g *Guarded) Embed(ctx context.Context, text string) ([]float32, error) {
	if !g.breaker.Allow() {
		return nil, fmt.Errorf("embedding breaker %s open: %w", g.breaker.Name(), sentinel.ErrUnavailable)
	}

	start := time.Now()
	vec, err := g.next.Embed(ctx, text)
	if g.metrics != nil {
		g.metrics.ObserveEmbedding(start)
	}
	if err != nil {
		if g.metrics != nil {
			g.metrics.IncrementEmbeddingFailure(string(upstream.CategoryOf(err)))
		}
		if upstream.IsRetryable(err) && ctx.Err() == nil {
			if _, change := g.breaker.RecordFailure(); change.Opened {
				g.onOpened(ctx, err)
			}
		}
		return nil, err
	}

	if _, change := g.breaker.RecordSuccess(); change.Closed && g.logger != nil {
		g.logger.InfoContext(ctx, "embedding provider recovered", "provider", g.next.Name())
	}
	return vec, nil
}

func (g *Guarded) onOpened(ctx context.Context, err error) {
	if g.metrics != nil {
		g.metrics.IncrementBreakerOpened()
	}
	if g.logger != nil {
		g.logger.WarnContext(ctx, "embedding provider circuit opened",
			"provider", g.next.Name(),
			"error", err,
		)
	}
}
