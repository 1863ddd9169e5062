package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// Model ids are lower snake case, 2-64 chars
	modelIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

	// Versions are short tokens usable as file names
	versionRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,31}$`)

	historyNameRegex = regexp.MustCompile(`^history_[0-9]{8}T[0-9]{6}\.[0-9]{3}Z(_[0-9]{3})?\.json$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except newline and tab
	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateModelID checks that a model id is safe to use as a path segment.
func ValidateModelID(id string) error {
	if id == "" {
		return errors.New("model id cannot be empty")
	}
	if !modelIDRegex.MatchString(id) {
		return errors.New("model id must start with a letter and contain only lowercase letters, numbers, and underscores")
	}
	return nil
}

func ValidateVersion(version string) error {
	if version == "" {
		return errors.New("version cannot be empty")
	}
	if version == "." || version == ".." || !versionRegex.MatchString(version) {
		return errors.New("version must contain only letters, numbers, dots, hyphens, and underscores")
	}
	return nil
}

// ValidateHistoryName accepts only names produced by the artifact store.
func ValidateHistoryName(name string) error {
	if !historyNameRegex.MatchString(name) {
		return errors.New("invalid history document name")
	}
	return nil
}

// NormalizeCron collapses whitespace and checks the five-field shape. Full
// parsing happens in the scheduler.
func NormalizeCron(expr string) (string, error) {
	fields := strings.Fields(SanitizeString(expr))
	if len(fields) != 5 {
		return "", errors.New("cron expression must have exactly 5 fields")
	}
	return strings.Join(fields, " "), nil
}

// ValidateUsername checks if a username is valid
func ValidateUsername(username string) error {
	username = SanitizeString(username)

	if username == "" {
		return errors.New("username cannot be empty")
	}
	if len(username) < 3 {
		return errors.New("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return errors.New("username must not exceed 50 characters")
	}

	return nil
}
