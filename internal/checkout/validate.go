package checkout

import (
	"fmt"
	"regexp"
	"strings"

	"storefront-service/internal/models"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	postalPattern = regexp.MustCompile(`^[0-9]{4}$`)
)

// ValidationError carries the per-field messages of a failed form check.
// It never reaches the upstream API; the attempt stays at pending.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout: validation failed on %d field(s)", len(e.Fields))
}

// Validate runs the required-field check on the checkout form. An empty
// map means the form is valid. Postal codes follow the Swiss 4-digit
// format.
func Validate(info models.CustomerInfo) map[string]string {
	errs := make(map[string]string)

	require(errs, "first_name", info.FirstName)
	require(errs, "last_name", info.LastName)
	require(errs, "phone", info.Phone)
	require(errs, "address", info.Address)
	require(errs, "city", info.City)
	require(errs, "canton", info.Canton)

	if strings.TrimSpace(info.Email) == "" {
		errs["email"] = "required"
	} else if !emailPattern.MatchString(info.Email) {
		errs["email"] = "invalid email address"
	}

	if strings.TrimSpace(info.PostalCode) == "" {
		errs["postal_code"] = "required"
	} else if !postalPattern.MatchString(info.PostalCode) {
		errs["postal_code"] = "must be exactly 4 digits"
	}

	return errs
}

func require(errs map[string]string, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs[field] = "required"
	}
}
