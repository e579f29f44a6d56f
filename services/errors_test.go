package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineErrorMatchesByCode(t *testing.T) {
	err := newError(CodeInvalidTransition, "order %s is %s", "o-1", "CANCELED")

	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "order o-1 is CANCELED", err.Error())

	wrapped := fmt.Errorf("confirm: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInvalidTransition))

	code, ok := CodeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeInvalidTransition, code)
}

func TestCodeOfUntypedError(t *testing.T) {
	_, ok := CodeOf(errors.New("disk on fire"))
	assert.False(t, ok)
}
