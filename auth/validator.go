package auth

import (
	"chatlink/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type LoginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type RegisterRequest struct {
	Username string `validate:"required,min=3,max=32"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// ValidateLogin checks form shape before any network call is made.
func ValidateLogin(req LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidCredentials, err)
	}
	return nil
}

// ValidateRegister checks registration input locally. The backend applies
// its own rules on top; this only catches obviously broken submissions.
func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRegistration, err)
	}
	return nil
}
