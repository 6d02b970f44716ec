// Package resolver maps the employee names on a roster to known identities.
//
// A batch embeds each distinct name once, with a bounded number of
// concurrent provider calls, then scores every shift against the venue's
// identities. Any embedding failure fails the whole batch so callers never
// persist a partially resolved roster.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"rostersync/internal/identity/metrics"
	"rostersync/internal/roster/models"
	"rostersync/internal/similarity"
	"rostersync/internal/upstream"
)

const defaultConcurrency = 4

// Embedder produces a name embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Resolver resolves shift names against a snapshot of identities.
type Resolver struct {
	embedder    Embedder
	threshold   float64
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Resolver)

// WithThreshold sets the score a match must exceed. Values outside (0,1] are ignored.
func WithThreshold(t float64) Option {
	return func(r *Resolver) {
		if t > 0 && t <= 1 {
			r.threshold = t
		}
	}
}

// WithConcurrency bounds in-flight embedding calls per batch.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New constructs a Resolver.
func New(embedder Embedder, opts ...Option) *Resolver {
	r := &Resolver{
		embedder:    embedder,
		threshold:   DefaultThreshold,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// EmbeddingText is the form of a name sent to the embedder. Shift names and
// identity display names both go through it so their vectors compare.
func EmbeddingText(name string) string {
	return similarity.NormalizeName(name)
}

// EmbedIdentity computes the stored embedding for an identity's display name.
func EmbedIdentity(ctx context.Context, embedder Embedder, identity models.Identity) ([]float32, error) {
	return embedder.Embed(ctx, EmbeddingText(identity.DisplayName))
}

// Resolve matches a single shift.
func (r *Resolver) Resolve(ctx context.Context, shift models.CanonicalShift, candidates []models.Identity) (models.MatchResult, error) {
	results, err := r.ResolveBatch(ctx, []models.CanonicalShift{shift}, candidates)
	if err != nil {
		return models.MatchResult{}, err
	}
	return results[0], nil
}

// ResolveBatch matches every shift. Results are in shift order. The
// candidates slice must not change while the batch runs.
func (r *Resolver) ResolveBatch(ctx context.Context, shifts []models.CanonicalShift, candidates []models.Identity) ([]models.MatchResult, error) {
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.ObserveResolveBatch(start)
		}
	}()

	embeddings, err := r.embedNames(ctx, shifts)
	if err != nil {
		return nil, err
	}

	r.warnOnDimensionMismatch(ctx, embeddings, candidates)

	results := make([]models.MatchResult, len(shifts))
	for i, shift := range shifts {
		vec := embeddings[EmbeddingText(shift.EmployeeName)]
		results[i] = Match(shift, vec, candidates, r.threshold)
		r.recordOutcome(results[i])
	}
	return results, nil
}

// embedNames fetches one embedding per distinct embedding text.
func (r *Resolver) embedNames(ctx context.Context, shifts []models.CanonicalShift) (map[string][]float32, error) {
	keys := make([]string, 0, len(shifts))
	seen := make(map[string]struct{}, len(shifts))
	for _, s := range shifts {
		key := EmbeddingText(s.EmployeeName)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	vectors := make([][]float32, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			vec, err := r.embedder.Embed(gctx, key)
			if err != nil {
				return fmt.Errorf("embed name %q: %w", key, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "embedding batch failed",
				"names", len(keys),
				"error", err,
			)
		}
		return nil, upstream.ToDomain(err, "name embedding failed")
	}

	out := make(map[string][]float32, len(keys))
	for i, key := range keys {
		out[key] = vectors[i]
	}
	return out, nil
}

// warnOnDimensionMismatch logs identities whose stored embedding cannot be
// compared with this batch's name embeddings. They still match by alias.
func (r *Resolver) warnOnDimensionMismatch(ctx context.Context, embeddings map[string][]float32, candidates []models.Identity) {
	if r.logger == nil {
		return
	}
	dims := 0
	for _, vec := range embeddings {
		dims = len(vec)
		break
	}
	for _, c := range candidates {
		if c.HasEmbedding() && dims > 0 && len(c.Embedding) != dims {
			r.logger.WarnContext(ctx, "identity embedding dimension differs from name embedding",
				"identity_id", c.ID,
				"identity_dims", len(c.Embedding),
				"name_dims", dims,
			)
		}
	}
}

func (r *Resolver) recordOutcome(m models.MatchResult) {
	if r.metrics == nil {
		return
	}
	switch {
	case !m.Matched():
		r.metrics.IncrementResolved("unmatched")
	case m.Confidence == AliasFloor:
		r.metrics.IncrementResolved("alias")
	default:
		r.metrics.IncrementResolved("matched")
	}
}
