package models

import "github.com/google/uuid"

// Identity is a known employee a roster name can resolve to. Aliases and
// Embedding are maintained elsewhere and read-only here.
type Identity struct {
	ID          uuid.UUID
	DisplayName string
	Aliases     []string
	Embedding   []float32
}

// Names returns the display name followed by every alias.
func (i Identity) Names() []string {
	names := make([]string, 0, len(i.Aliases)+1)
	names = append(names, i.DisplayName)
	return append(names, i.Aliases...)
}

// HasEmbedding reports whether the identity can be scored by vector similarity.
func (i Identity) HasEmbedding() bool {
	return len(i.Embedding) > 0
}
