package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"short1!", false},
		{"longenough", false},
		{"longenough1", false},
		{"longenough!", false},
		{"longenough1!", true},
		{"çãõé1!", false},
		{"senhaçã1!", true},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePassword(tt.password))
		})
	}
}

func TestRoleRule(t *testing.T) {
	InitValidator()

	type input struct {
		Role string `validate:"required,role"`
	}
	assert.NoError(t, Validate.Struct(input{Role: "Administrator"}))
	assert.NoError(t, Validate.Struct(input{Role: "analista"}))
	assert.Error(t, Validate.Struct(input{Role: "vendor"}))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@loja.com", NormalizeEmail("  Ana@Loja.COM "))
}
