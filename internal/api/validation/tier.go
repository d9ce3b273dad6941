package validation

import "strings"

// CreateTierRequest mirrors the fields needed for create tier validation.
type CreateTierRequest struct {
	ID       string
	Name     string
	Position int
}

// ValidateCreateTierRequest validates the fields of a create tier request.
func ValidateCreateTierRequest(req CreateTierRequest) []FieldError {
	var errs []FieldError

	if req.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	} else if !tierIDRegex.MatchString(req.ID) {
		errs = append(errs, FieldError{Field: "id", Message: "id must be lowercase alphanumeric with underscores, 2-32 characters, starting with a letter"})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > 64 {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 64 characters"})
	}

	if req.Position < 0 {
		errs = append(errs, FieldError{Field: "position", Message: "position must not be negative"})
	}

	return errs
}
