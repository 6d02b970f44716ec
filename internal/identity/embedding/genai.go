package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"rostersync/internal/upstream"
)

// GenAI generates embeddings with Google's Gemini embedding models.
type GenAI struct {
	client *genai.Client
	model  string
}

// NewGenAI creates a GenAI provider tuned for semantic similarity.
func NewGenAI(ctx context.Context, apiKey, model string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}
	return &GenAI{client: client, model: model}, nil
}

func (g *GenAI) Name() string {
	return "genai:" + g.model
}

// Embed requests a semantic-similarity embedding for text.
func (g *GenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	result, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, upstream.FromTransport(g.Name(), err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, upstream.Malformed(g.Name(), "no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}
