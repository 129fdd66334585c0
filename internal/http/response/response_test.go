package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKWithData(t *testing.T) {
	resp := OKWithData(map[string]any{"product_id": "yearly"})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.NotNil(t, resp.Data)
}

func TestErrorWithCode(t *testing.T) {
	resp := ErrorWithCode("receipt rejected by billing authority", "authority_rejected")
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "authority_rejected", resp.Code)
}

func TestValidationError(t *testing.T) {
	type request struct {
		Receipt  string `validate:"required"`
		Platform string `validate:"required,oneof=ios android"`
	}

	v := validator.New()
	err := v.Struct(request{Platform: "windows"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Receipt is a required field")
	assert.Contains(t, resp.Error, "field Platform must be one of: ios android")
}
