package auth

import (
	"chatty/domain"
	"chatty/errors"
	stderrors "errors"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

const (
	MsgAllFieldsRequired  = "All fields are required"
	MsgInvalidEmail       = "Invalid email format"
	MsgPasswordTooShort   = "Password must be at least 6 characters"
	MsgProfilePicRequired = "Profile pic is required"
	MsgEmptyMessage       = "Message cannot be empty"
)

// ValidateSignUp reports missing fields first, then the email format, then
// the password length.
func ValidateSignUp(req domain.SignUpRequest) error {
	return check(req, MsgAllFieldsRequired, map[string]string{
		"email": MsgInvalidEmail,
		"min":   MsgPasswordTooShort,
	})
}

func ValidateLogin(req domain.LoginRequest) error {
	return check(req, MsgAllFieldsRequired, nil)
}

func ValidateProfileUpdate(req domain.ProfileUpdate) error {
	return check(req, MsgProfilePicRequired, nil)
}

// ValidateMessage refuses a payload with neither text nor image.
func ValidateMessage(payload domain.MessagePayload) error {
	return check(payload, MsgEmptyMessage, map[string]string{
		"required_without": MsgEmptyMessage,
	})
}

func check(v any, required string, byTag map[string]string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return err
	}
	if lo.ContainsBy(fieldErrs, func(fe validator.FieldError) bool { return fe.Tag() == "required" }) {
		return &errors.ValidationError{Message: required}
	}
	for _, fe := range fieldErrs {
		if msg, ok := byTag[fe.Tag()]; ok {
			return &errors.ValidationError{Message: msg}
		}
	}
	return &errors.ValidationError{Message: fieldErrs[0].Error()}
}
