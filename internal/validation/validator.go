package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/apmoronez/dogbot/internal/errors"
)

const (
	// Size limits
	MaxTenantIDSize   = 256
	MaxCollectionSize = 64
)

// Validator validates the identifiers that become part of storage keys
type Validator struct {
	maxTenantIDSize   int
	maxCollectionSize int
}

// NewValidator creates a new validator with default limits
func NewValidator() *Validator {
	return &Validator{
		maxTenantIDSize:   MaxTenantIDSize,
		maxCollectionSize: MaxCollectionSize,
	}
}

// ValidateTenantID validates a tenant ID
func (v *Validator) ValidateTenantID(tenantID string) error {
	return v.validateSegment("tenant_id", tenantID, v.maxTenantIDSize)
}

// ValidateCollection validates a top-level collection name
func (v *Validator) ValidateCollection(name string) error {
	return v.validateSegment("collection", name, v.maxCollectionSize)
}

// validateSegment rejects anything that could break delimited key construction
func (v *Validator) validateSegment(field, value string, maxSize int) error {
	if value == "" {
		return errors.Validation(field, "cannot be empty")
	}

	if len(value) > maxSize {
		return errors.Validation(field, fmt.Sprintf("exceeds maximum size of %d bytes", maxSize))
	}

	// ':' is the key separator
	if strings.Contains(value, ":") {
		return errors.Validation(field, "cannot contain ':' character")
	}

	for _, r := range value {
		if unicode.IsControl(r) {
			return errors.Validation(field, "cannot contain control characters")
		}
	}

	return nil
}
