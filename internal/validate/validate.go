// Package validate holds the pure form-field validators shared by the route
// handlers. Each validator trims its input and returns the normalized value.
package validate

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"
)

// Validation errors returned to handlers for field-keyed 400 responses.
var (
	ErrRequired      = errors.New("validate: required")
	ErrInvalidEmail  = errors.New("validate: invalid email")
	ErrPasswordShort = errors.New("validate: password too short")
	ErrNotPositive   = errors.New("validate: must be positive")
	ErrNotANumber    = errors.New("validate: not a number")
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// Email normalizes an email address to lowercase and checks its shape.
func Email(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrRequired
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(trimmed), nil
}

// Username checks a username is non-blank after trimming.
func Username(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrRequired
	}
	return trimmed, nil
}

// Password checks the minimum password length.
func Password(raw string) error {
	if len(raw) < MinPasswordLength {
		return ErrPasswordShort
	}
	return nil
}

// Title checks a title or description is non-blank after trimming.
func Title(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrRequired
	}
	return trimmed, nil
}

// Servings parses an optional positive serving count. Blank input yields nil.
func Servings(raw string) (*int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, ErrNotANumber
	}
	if n <= 0 {
		return nil, ErrNotPositive
	}
	return &n, nil
}

// Quantity parses a required positive decimal quantity.
func Quantity(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrRequired
	}
	q, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, ErrNotANumber
	}
	if q <= 0 {
		return 0, ErrNotPositive
	}
	return q, nil
}

// Name normalizes a dictionary name (unit or ingredient) to lowercase.
func Name(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrRequired
	}
	return strings.ToLower(trimmed), nil
}
