package validator

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Email reports whether the address is syntactically deliverable
func Email(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	return instance().Var(email, "required,email") == nil
}
