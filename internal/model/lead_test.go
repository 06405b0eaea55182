package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeadStatus_Valid(t *testing.T) {
	assert.True(t, LeadStatusUnsent.Valid())
	assert.True(t, LeadStatusSent.Valid())
	assert.False(t, LeadStatus("archived").Valid())
	assert.False(t, LeadStatus("").Valid())
}

func TestLead_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		lead Lead
		want string
	}{
		{"absent", Lead{}, "there"},
		{"blank", Lead{Name: StringPtr("   ")}, "there"},
		{"present", Lead{Name: StringPtr("Ann")}, "Ann"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lead.DisplayName(DefaultPlaceholderName))
		})
	}
}

func TestLead_HasMessage(t *testing.T) {
	assert.False(t, Lead{}.HasMessage())
	assert.True(t, Lead{Message: StringPtr("Hi")}.HasMessage())
}

func TestStringPtrAndDeref(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "x", Deref(StringPtr("x")))
	assert.Equal(t, "", Deref(nil))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("No images provided")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "No images provided", err.Error())
}
