package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/dialogue-tts/internal/domain"
)

func TestKindOf_ClassifiedErrors(t *testing.T) {
	t.Parallel()

	inputErr := domain.NewInputError(domain.ErrEmptyText)

	kind, ok := domain.KindOf(inputErr)
	require.True(t, ok)
	assert.Equal(t, domain.KindInput, kind)

	cause := errors.New("engine exploded")
	synthErr := domain.NewSynthesisError(cause)

	kind, ok = domain.KindOf(synthErr)
	require.True(t, ok)
	assert.Equal(t, domain.KindSynthesis, kind)

	// The original cause stays reachable for diagnostics.
	assert.ErrorIs(t, synthErr, cause)
	assert.ErrorIs(t, inputErr, domain.ErrEmptyText)
}

func TestKindOf_UnclassifiedError(t *testing.T) {
	t.Parallel()

	_, ok := domain.KindOf(errors.New("plain"))
	assert.False(t, ok)
}
