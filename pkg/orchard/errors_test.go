package orchard

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := Errorf(CodeInsufficientFunds, "outputs %d exceed spends %d", 10, 5)

	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.False(t, errors.Is(err, ErrMalformedActionInfo))
	assert.Equal(t, CodeInsufficientFunds, CodeOf(err))
}

func TestErrorSurvivesWrapping(t *testing.T) {
	inner := Wrap(CodeRandomSourceExhausted, errors.New("device unplugged"), "reading entropy")
	outer := fmt.Errorf("shield: %w", inner)

	require.True(t, errors.Is(outer, ErrRandomSourceExhausted))
	require.Equal(t, CodeRandomSourceExhausted, CodeOf(outer))

	var e *Error
	require.True(t, errors.As(outer, &e))
	assert.EqualError(t, e.Unwrap(), "device unplugged")
	assert.Contains(t, outer.Error(), "RANDOM_SOURCE_EXHAUSTED")
}

func TestErrorMatchesSameCode(t *testing.T) {
	a := Errorf(CodeInvalidAlpha, "alpha is zero")
	b := Errorf(CodeInvalidAlpha, "other message")

	assert.True(t, errors.Is(a, b))
	assert.Empty(t, CodeOf(errors.New("plain")))
}
