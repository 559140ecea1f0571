package errors

import (
	"regexp"
	"strings"
	"unicode"
)

const maxPlaceNameLength = 200

// ValidatePlaceName validates a city or country name before it is sent to
// the geocoder and embedded in output filenames.
//
// Rules:
//   - No control characters or null bytes
//   - Maximum length of 200 characters
//   - Must contain at least one letter or digit
//
// Empty names are accepted here; callers decide whether a field is required.
func ValidatePlaceName(field, name string) error {
	if name == "" {
		return nil
	}

	if len(name) > maxPlaceNameLength {
		return New(ErrCodeInvalidInput, "%s too long (max %d characters)", field, maxPlaceNameLength)
	}

	hasAlnum := false
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s contains invalid control characters", field)
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasAlnum = true
		}
	}
	if !hasAlnum {
		return New(ErrCodeInvalidInput, "%s must contain letters or digits", field)
	}

	return nil
}

// themeNameRegex matches theme file stems like "blueprint" or "warm_beige".
var themeNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateThemeName validates a theme name. Theme names map directly onto
// files in the themes directory, so anything resembling a path is rejected.
func ValidateThemeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidTheme, "theme name cannot be empty")
	}

	if !themeNameRegex.MatchString(name) {
		return New(ErrCodeInvalidTheme, "invalid theme name: %q", name)
	}

	return nil
}

// ValidateFilename validates an output filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidPath, "filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidPath, "filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidPath, "filename cannot be a hidden file")
	}

	for _, r := range filename {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "filename contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
