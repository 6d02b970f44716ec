package resolver

import (
	"math"

	"github.com/google/uuid"

	"rostersync/internal/roster/models"
	"rostersync/internal/similarity"
)

const (
	// DefaultThreshold is the score a candidate must exceed to match.
	DefaultThreshold = 0.83

	// AliasFloor is the score an alias match is raised to.
	AliasFloor = 0.9

	// AliasMaxDistance is the largest edit distance that counts as an alias match.
	AliasMaxDistance = 2
)

// Score is one candidate's scoring breakdown.
type Score struct {
	IdentityID uuid.UUID
	Similarity float64
	AliasMatch bool
	Final      float64
	// VectorErr is set when the vectors could not be compared.
	VectorErr error
}

// ScoreCandidate scores one identity against a shift name and its embedding.
// A nil nameEmbedding or identity embedding scores 0 similarity, leaving
// only the alias rule.
func ScoreCandidate(name string, nameEmbedding []float32, candidate models.Identity) Score {
	sc := Score{IdentityID: candidate.ID}

	if len(nameEmbedding) > 0 && candidate.HasEmbedding() {
		sim, err := similarity.Cosine(nameEmbedding, candidate.Embedding)
		if err != nil {
			sc.VectorErr = err
		} else {
			sc.Similarity = sim
		}
	}

	for _, known := range candidate.Names() {
		if known != "" && similarity.EditDistance(name, known) <= AliasMaxDistance {
			sc.AliasMatch = true
			break
		}
	}

	sc.Final = sc.Similarity
	if sc.AliasMatch {
		sc.Final = math.Max(sc.Similarity, AliasFloor)
	}
	return sc
}

// Match picks the best candidate for shift whose score exceeds threshold.
// Equal best scores go to the lexicographically smallest identity id so the
// result never depends on candidate order.
func Match(shift models.CanonicalShift, nameEmbedding []float32, candidates []models.Identity, threshold float64) models.MatchResult {
	best, ok := bestScore(shift.EmployeeName, nameEmbedding, candidates, threshold)
	if !ok {
		return models.MatchResult{Shift: shift}
	}
	id := best.IdentityID
	return models.MatchResult{
		Shift:      shift,
		IdentityID: &id,
		Confidence: math.Min(best.Final, 1),
	}
}

func bestScore(name string, nameEmbedding []float32, candidates []models.Identity, threshold float64) (Score, bool) {
	var best Score
	found := false
	for _, c := range candidates {
		sc := ScoreCandidate(name, nameEmbedding, c)
		if !(sc.Final > threshold) {
			continue
		}
		if !found || sc.Final > best.Final ||
			(sc.Final == best.Final && sc.IdentityID.String() < best.IdentityID.String()) {
			best = sc
			found = true
		}
	}
	return best, found
}
