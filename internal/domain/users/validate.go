package users

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dorandoran/user/internal/apperr"
)

const (
	maxNameLen     = 50
	maxInfoLen     = 100
	maxPictureLen  = 500
	minPasswordLen = 8
	maxPasswordLen = 100
)

func validationErr(msg string) error {
	return apperr.Newf(apperr.ValidationError, "%s", msg)
}

func validateEmail(email string) error {
	if email == "" {
		return validationErr("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationErr("email is not a valid address")
	}
	return nil
}

func validateLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		if min > 0 && n == 0 {
			return validationErr(field + " is required")
		}
		return validationErr(field + " length is out of range")
	}
	return nil
}

// CheckPasswordPolicy enforces length and requires at least one letter and one digit.
func CheckPasswordPolicy(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen {
		return apperr.Newf(apperr.InvalidRequest, "password must be at least 8 characters")
	}
	if n > maxPasswordLen {
		return apperr.Newf(apperr.InvalidRequest, "password must be at most 100 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return apperr.Newf(apperr.InvalidRequest, "password must contain at least one letter and one digit")
	}
	return nil
}

// displayName falls back to "first last" when name is blank.
func displayName(name, first, last string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
