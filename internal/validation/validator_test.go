package validation

import (
	"strings"
	"testing"

	storeerrors "github.com/apmoronez/dogbot/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidator_ValidateTenantID(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		tenant  string
		wantErr bool
	}{
		{"slack team id", "T024BE7LD", false},
		{"unicode", "équipe-chien", false},
		{"empty", "", true},
		{"separator", "team:1", true},
		{"control character", "team\n1", true},
		{"too long", strings.Repeat("a", MaxTenantIDSize+1), true},
		{"max length", strings.Repeat("a", MaxTenantIDSize), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateTenantID(tt.tenant)
			if tt.wantErr {
				assert.ErrorIs(t, err, storeerrors.ErrValidation)
				assert.Equal(t, "tenant_id", storeerrors.Field(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_ValidateCollection(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateCollection("teams"))
	assert.Error(t, v.ValidateCollection(""))
	assert.Error(t, v.ValidateCollection("a:b"))
	assert.Error(t, v.ValidateCollection(strings.Repeat("c", MaxCollectionSize+1)))
}
