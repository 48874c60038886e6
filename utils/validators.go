package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"catalogadmin/rbac"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterCustomValidators(v *validator.Validate) {
	_ = v.RegisterValidation("password", ValidatePasswordRule)
	_ = v.RegisterValidation("role", ValidateRoleRule)
}

var Validate *validator.Validate

// InitValidator registers the custom rules on a standalone validator and on
// the one gin uses for binding.
func InitValidator() {
	Validate = validator.New()
	RegisterCustomValidators(Validate)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterCustomValidators(v)
	}
}

func ValidatePasswordRule(fl validator.FieldLevel) bool {
	return ValidatePassword(fl.Field().String())
}

// ValidateRoleRule accepts any alias that normalizes to a built-in role.
func ValidateRoleRule(fl validator.FieldLevel) bool {
	return rbac.NormalizeRole(fl.Field().String()).Canonical()
}

func ValidatePassword(password string) bool {
	// Password must:
	// - Be at least 8 characters long
	// - Contain at least one number
	// - Contain at least one special character

	hasNumber := false
	hasSpecial := false

	if utf8.RuneCountInString(password) < 8 {
		return false
	}

	for _, char := range password {
		switch {
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	return hasNumber && hasSpecial
}

// NormalizeEmail is the form emails are stored and keyed under.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
