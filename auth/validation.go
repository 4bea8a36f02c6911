package auth

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-members-gateway/internal/errors"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are rejected outright
const maxPasswordBytes = 72

// SignupInput is a validated signup form. Name and Email are trimmed; Password is kept verbatim.
type SignupInput struct {
	Name     string `form:"name" validate:"required,min=1"`
	Email    string `form:"email" validate:"required,min=3,email"`
	Password string `form:"password" validate:"required,min=3,maxbytes=72"`
}

// LoginInput is a validated login form
type LoginInput struct {
	Email    string `form:"email" validate:"required,min=3,email"`
	Password string `form:"password" validate:"required,min=3,maxbytes=72"`
}

// FieldError describes one violated rule
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

// ValidationError lists every field that failed. It matches errors.ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "ValidationError: " + strings.Join(msgs, ". ")
}

func (e *ValidationError) Unwrap() error {
	return errors.ErrValidation
}

// Validator checks signup and login input. It holds no state beyond the compiled rules.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	// min/max count runes; the password limit is in bytes
	err := v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	if err != nil {
		panic(fmt.Sprintf("register maxbytes rule: %v", err))
	}
	return &Validator{validate: v}
}

// ValidateSignup trims name and email and checks all three signup fields
func (v *Validator) ValidateSignup(name, email, password string) (SignupInput, error) {
	in := SignupInput{
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	return in, v.check(in)
}

// ValidateLogin trims the email and checks the login fields
func (v *Validator) ValidateLogin(email, password string) (LoginInput, error) {
	in := LoginInput{
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	return in, v.check(in)
}

func (v *Validator) check(in any) error {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrapf(err, "[Validator check]")
	}

	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	return ve
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is not allowed to be empty", fe.Field())
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%q length must be less than or equal to %s bytes long", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%q must be a valid email", fe.Field())
	default:
		return fmt.Sprintf("%q failed the %s rule", fe.Field(), fe.Tag())
	}
}
