package response

import (
	"errors"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name       string `validate:"required"`
	Email      string `validate:"omitempty,email"`
	Permission string `validate:"required,oneof=granted denied"`
}

func TestValidationError(t *testing.T) {
	err := validator.New().Struct(sample{Email: "nope", Permission: "maybe"})

	res := ValidationError(err)
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "field Name is a required field")
	assert.Contains(t, res.Error, "field Email must be a valid email")
	assert.Contains(t, res.Error, "field Permission must be one of: granted denied")
}

func TestValidationError_PlainError(t *testing.T) {
	res := ValidationError(errors.New("boom"))
	assert.Equal(t, "boom", res.Error)
}

func TestOKWithData(t *testing.T) {
	res := OKWithData(map[string]int{"n": 1})
	assert.Equal(t, StatusOK, res.Status)
	assert.Empty(t, res.Error)
	assert.Equal(t, StatusOK, OK().Status)
}
