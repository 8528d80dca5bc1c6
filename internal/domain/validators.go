package domain

import (
	"fmt"
	"strings"
)

const maxTitleLength = 200

// ValidateTitle checks a record title and returns it trimmed.
func ValidateTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", fmt.Errorf("title is required")
	}
	if len(t) > maxTitleLength {
		return "", fmt.Errorf("title is too long (%d chars, max %d)", len(t), maxTitleLength)
	}
	return t, nil
}

// ValidateNonNegative checks that a counter such as experience or minutes is not negative.
func ValidateNonNegative(field string, v int64) error {
	if v < 0 {
		return fmt.Errorf("%s must not be negative, got %d", field, v)
	}
	return nil
}

// ValidateBookStatus checks that a status is one of the known reading states.
func ValidateBookStatus(s BookStatus) error {
	if !s.IsValid() {
		return fmt.Errorf("invalid book status: %q", s)
	}
	return nil
}
