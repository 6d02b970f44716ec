// Package embedding turns employee names into vectors. Name embeddings and
// stored identity embeddings must come from the same model or similarity
// scores are meaningless, so every provider reports the model it uses.
package embedding

import "context"

// Provider generates one embedding per call.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
}
