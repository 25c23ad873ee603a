package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create recipe: %w", Conflict("name", "already exists"))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "amount: must be greater than or equal to 1", OutOfRange("amount", 1).Error())
	assert.Equal(t, "ingredients: this field is required", MissingField("ingredients").Error())

	cause := errors.New("disk full")
	err := Storage("could not save recipe", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "could not save recipe: disk full", err.Error())
}
