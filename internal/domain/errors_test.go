package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionError(t *testing.T) {
	err := fmt.Errorf("approve: %w", transitionError("internship", "int-1", InternshipCompleted, InternshipApproved, "closed"))

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "approve: internship int-1: cannot move from COMPLETED to APPROVED: closed", err.Error())

	te, ok := AsTransitionError(err)
	assert.True(t, ok)
	assert.Equal(t, "COMPLETED", te.From)

	_, ok = AsTransitionError(errors.New("other"))
	assert.False(t, ok)
}

func TestInvalid(t *testing.T) {
	assert.NoError(t, Invalid("batch", nil))
	assert.NoError(t, Invalid("batch", []string{}))

	err := Invalid("batch", []string{"name is required", "code is required"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid batch: name is required; code is required", err.Error())

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Problems, 2)
}
