// Package similarity scores how alike two employee names are, either as
// embedding vectors or as strings.
package similarity

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	pstrings "rostersync/pkg/platform/strings"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrZeroVector        = errors.New("zero-magnitude vector")
)

// Cosine returns dot(a,b) / (|a|*|b|). Vectors of unequal length, or any
// zero-magnitude vector, are rejected rather than scored.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors a hair past 1.
	return math.Max(-1, math.Min(1, sim)), nil
}

var folder = cases.Fold()

// Fold case-folds s for comparison.
func Fold(s string) string {
	return folder.String(s)
}

// NormalizeName produces the comparison key for a name: NFKC, whitespace
// collapsed, case-folded. Two spellings that differ only in width, spacing
// or case share a key.
func NormalizeName(name string) string {
	return Fold(pstrings.CollapseWhitespace(norm.NFKC.String(name)))
}

// EditDistance is the Levenshtein distance between s1 and s2 after case
// folding, counted in runes.
func EditDistance(s1, s2 string) int {
	a := []rune(Fold(s1))
	b := []rune(Fold(s2))
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
