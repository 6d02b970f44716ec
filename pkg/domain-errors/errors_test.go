package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("connection refused")
	inner := Wrap(base, CodeUnavailable, "embedding lookup failed")
	outer := Wrap(fmt.Errorf("resolve batch: %w", inner), CodeInternal, "ingest failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeUnavailable))
	assert.False(t, HasCode(outer, CodeValidation))
	assert.ErrorIs(t, outer, base)
}

func TestIsChecksOutermostCode(t *testing.T) {
	err := Wrap(New(CodeNotFound, "missing"), CodeInternal, "load failed")

	assert.True(t, Is(err, CodeInternal))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(errors.New("plain"), CodeInternal))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "unavailable is retryable", err: New(CodeUnavailable, "down"), expected: true},
		{name: "timeout is retryable", err: New(CodeTimeout, "slow"), expected: true},
		{name: "malformed output is not retryable", err: New(CodeMalformedOutput, "bad json"), expected: false},
		{name: "explicitly retryable conflict", err: NewRetryable(nil, CodeConflict, "race"), expected: true},
		{name: "plain error", err: errors.New("boom"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConflict, CodeOf(fmt.Errorf("wrapped: %w", New(CodeConflict, "race"))))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
