package validation

// CreateAccountRequest mirrors the fields needed for create account validation.
type CreateAccountRequest struct {
	Name  string
	Tiers []string
}

// ValidateCreateAccountRequest validates the fields of a create account request.
// The optional expiry block is not validated here: invalid expiry input makes the account permanent.
func ValidateCreateAccountRequest(req CreateAccountRequest) []FieldError {
	var errs []FieldError

	if trimmedLen(req.Name) == 0 {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if !accountNameRegex.MatchString(req.Name) {
		errs = append(errs, FieldError{Field: "name", Message: "name must be lowercase alphanumeric with dots, underscores or hyphens, 3-64 characters"})
	}

	errs = append(errs, validateTierIDs("tiers", req.Tiers)...)

	return errs
}

// SetTiersRequest mirrors the fields needed for replacing the tiers of an account.
type SetTiersRequest struct {
	Tiers []string
}

// ValidateSetTiersRequest validates a tier replacement.
func ValidateSetTiersRequest(req SetTiersRequest) []FieldError {
	return validateTierIDs("tiers", req.Tiers)
}
