// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hay-kot/criterio"
)

// MaxNameLength bounds project and tag names.
const MaxNameLength = 100

// Name validates a display name is non-empty after trimming whitespace.
func Name(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// NameField returns a criterio validator for names.
func NameField(field, name string) error {
	return criterio.Run(field, name, Name)
}

// TagName validates a tag name. Tags are matched against annotation tag
// labels, so they must be a single word.
func TagName(name string) error {
	if err := Name(name); err != nil {
		return err
	}
	if strings.IndexFunc(strings.TrimSpace(name), unicode.IsSpace) >= 0 {
		return fmt.Errorf("tag name must not contain whitespace")
	}
	return nil
}

// TagNameField returns a criterio validator for tag names.
func TagNameField(field, name string) error {
	return criterio.Run(field, name, TagName)
}
