package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_WrapAndClassify(t *testing.T) {
	base := errors.New("quota API down")
	err := fmt.Errorf("extract page 2: %w", ServiceError("metadata call failed", base))

	assert.True(t, IsType(err, ErrorTypeService))
	assert.False(t, IsType(err, ErrorTypeRender))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "metadata call failed: quota API down", UserMessage(err))
}

func TestTypeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("boom")))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}

func TestDomainError_Format(t *testing.T) {
	assert.Equal(t, "[input_validation] no file or URL supplied", InputValidationError("no file or URL supplied", nil).Error())
}
