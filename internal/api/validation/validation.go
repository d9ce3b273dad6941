package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	accountNameRegex = regexp.MustCompile(`^[a-z][a-z0-9._-]{1,62}[a-z0-9]$`)
	tierIDRegex      = regexp.MustCompile(`^[a-z][a-z0-9_]{1,31}$`)
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validateTierIDs(field string, ids []string) []FieldError {
	var errs []FieldError

	if len(ids) == 0 {
		return append(errs, FieldError{Field: field, Message: field + " must contain at least one tier"})
	}

	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		name := fmt.Sprintf("%s[%d]", field, i)
		switch {
		case !tierIDRegex.MatchString(id):
			errs = append(errs, FieldError{Field: name, Message: "tier id must be lowercase alphanumeric with underscores, 2-32 characters, starting with a letter"})
		case seen[id]:
			errs = append(errs, FieldError{Field: name, Message: fmt.Sprintf("tier %q is listed twice", id)})
		}
		seen[id] = true
	}

	return errs
}

func trimmedLen(s string) int {
	return len(strings.TrimSpace(s))
}
