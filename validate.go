package authkit

import (
	"net/mail"
	"strings"
)

// normalizeEmail lowercases and trims an email the way the store indexes it.
// Uniqueness and lookups both operate on the normalized form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// Reject the "Name <addr>" form; only a bare address is an identity.
	return addr.Address == email
}

func validateRegisterInput(in RegisterInput, minPasswordLen int) *ValidationError {
	var fields []FieldError

	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "name is required"})
	}
	if !validEmail(normalizeEmail(in.Email)) {
		fields = append(fields, FieldError{Field: "email", Message: "email is not valid"})
	}
	if len(in.Password) < minPasswordLen {
		fields = append(fields, FieldError{Field: "password", Message: "password is too short"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func validateNewPassword(newPassword, confirmPassword string, minLen int) *ValidationError {
	var fields []FieldError

	if len(newPassword) < minLen {
		fields = append(fields, FieldError{Field: "password", Message: "password is too short"})
	}
	if newPassword != confirmPassword {
		fields = append(fields, FieldError{Field: "confirmPassword", Message: "passwords do not match"})
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
