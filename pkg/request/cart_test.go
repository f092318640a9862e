package request

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAddItemValidation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	tests := []struct {
		name        string
		param       AddItem
		expectedErr bool
	}{
		{
			name:        "given productId and quantity should be valid",
			param:       AddItem{ProductId: uuid.New(), Quantity: 1},
			expectedErr: false,
		},
		{
			name:        "given missing productId should be invalid",
			param:       AddItem{Quantity: 1},
			expectedErr: true,
		},
		{
			name:        "given zero quantity should be invalid",
			param:       AddItem{ProductId: uuid.New(), Quantity: 0},
			expectedErr: true,
		},
		{
			name:        "given negative quantity should be invalid",
			param:       AddItem{ProductId: uuid.New(), Quantity: -1},
			expectedErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.param)
			if tt.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMergeCartValidation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	assert.Error(t, validate.Struct(MergeCart{}))
	assert.NoError(t, validate.Struct(MergeCart{SessionId: "session-1"}))
}
