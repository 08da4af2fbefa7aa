package utils

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationSample struct {
	Action   string `json:"action" binding:"required,oneof=a b"`
	Activity string `json:"actividad" binding:"omitempty,activity_kind"`
	Type     string `json:"type" binding:"omitempty,ranking_type"`
}

func TestCustomValidators(t *testing.T) {
	RegisterValidators()

	tests := []struct {
		name    string
		in      validationSample
		wantErr string
	}{
		{"valid", validationSample{Action: "a", Activity: "caja", Type: "Highest"}, ""},
		{"missing action", validationSample{}, "action is required"},
		{"bad oneof", validationSample{Action: "c"}, "action must be one of a b"},
		{"bad activity", validationSample{Action: "a", Activity: "caja; drop"}, "invalid activity"},
		{"bad ranking", validationSample{Action: "a", Type: "weekly"}, "type must be one of highest, recent, level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, ValidationMessage(err))
		})
	}
}
