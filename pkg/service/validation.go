package service

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"bloodbank/pkg/models"
)

const minPasswordLength = 6

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

func validateBloodType(bloodType string) error {
	if !models.IsBloodGroup(bloodType) {
		return invalid("invalid blood type %q", bloodType)
	}
	return nil
}

// validateMobile ignores separators and accepts 10 to 15 digits.
func validateMobile(mobile string) error {
	digits := 0
	for _, r := range mobile {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < 10 || digits > 15 {
		return invalid("mobile number must contain 10 to 15 digits")
	}
	return nil
}

func validateDate(field, value string) error {
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return invalid("%s must be in YYYY-MM-DD format", field)
	}
	return nil
}

func validateTime(field, value string) error {
	if _, err := time.Parse("15:04", value); err != nil {
		return invalid("%s must be in HH:MM format", field)
	}
	return nil
}

func validatePassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return invalid("password must be at least %d characters long", minPasswordLength)
	}
	if confirm != "" && confirm != password {
		return invalid("passwords do not match")
	}
	return nil
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return invalid("invalid email address")
	}
	return nil
}
