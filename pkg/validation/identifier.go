// Package validation provides input validation for identifiers that end up
// in database queries or cache file keys.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// idPattern matches asset, location, and plan identifiers. Allows letters,
// digits, dots, underscores, and hyphens, starting with a letter or digit.
// Max length 64, which covers UUIDs and human-assigned slugs.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// slugPattern matches tenant slugs: lowercase, digits, hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,63}$`)

// ValidateID validates an entity identifier before it is used in a query
// filter or a cache key.
//
// Example:
//
//	if err := validation.ValidateID(assetID); err != nil {
//	    return fmt.Errorf("invalid asset id: %w", err)
//	}
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid id format: %q (must be 1-64 alphanumeric chars, dots, underscores, or hyphens)", id)
	}
	return nil
}

// ValidateTenantSlug validates a tenant slug.
func ValidateTenantSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("tenant slug cannot be empty")
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid tenant slug: %q (must be 1-64 lowercase alphanumeric chars or hyphens)", slug)
	}
	return nil
}

// SanitizeTenantSlug normalizes and validates a tenant slug. Returns the
// lowercase slug if valid.
func SanitizeTenantSlug(slug string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(slug))
	if err := ValidateTenantSlug(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
