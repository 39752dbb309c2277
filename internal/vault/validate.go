package vault

import (
	"errors"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxNameLength caps the user-supplied part of a document file name.
const MaxNameLength = 128

const reservedChars = `/\<>:"|?*`

// safeName rejects names that would leave the vault folder or produce an
// invalid file name on common platforms.
func safeName(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, ".") {
		return errors.New("must not start with a dot")
	}
	if strings.ContainsAny(s, reservedChars) {
		return errors.New(`must not contain path separators or any of <>:"|?*`)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return errors.New("must not contain control characters")
		}
	}
	return nil
}

// validateCreate checks already-trimmed create input.
func validateCreate(name, content string) error {
	return validation.Errors{
		"name": validation.Validate(name,
			validation.Required,
			validation.RuneLength(1, MaxNameLength),
			validation.By(safeName),
		),
		"content": validation.Validate(content, validation.Required),
	}.Filter()
}

// ValidateName reports whether name is acceptable as a document name.
func ValidateName(name string) error {
	return validation.Validate(strings.TrimSpace(name),
		validation.Required,
		validation.RuneLength(1, MaxNameLength),
		validation.By(safeName),
	)
}
