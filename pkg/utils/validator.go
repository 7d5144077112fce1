package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex        = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	unsafeFileChars   = regexp.MustCompile(`[^a-zA-Z0-9_.\-]`)
	controlCharacters = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// SanitizeFileName replaces every character outside [A-Za-z0-9_.-] with '_'
func SanitizeFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlCharacters.ReplaceAllString(s, "")
}

// BaseName strips any directory part a client may send with an upload name
func BaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
