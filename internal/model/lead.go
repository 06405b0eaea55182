package model

import (
	"strings"
	"time"
)

// LeadStatus represents whether a lead's outreach link has been used.
type LeadStatus string

const (
	LeadStatusUnsent LeadStatus = "unsent"
	LeadStatusSent   LeadStatus = "sent"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	return s == LeadStatusUnsent || s == LeadStatusSent
}

// DefaultPlaceholderName is rendered into templates for leads without a name.
const DefaultPlaceholderName = "there"

// Lead is a phone-number contact extracted from a screenshot.
type Lead struct {
	ID        string     `json:"id"`
	Phone     string     `json:"phone"`
	Name      *string    `json:"name"`
	Message   *string    `json:"message"`
	WALink    *string    `json:"wa_link"`
	Status    LeadStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// HasMessage reports whether generation has already produced a message.
func (l Lead) HasMessage() bool {
	return l.Message != nil
}

// DisplayName returns the lead's name, or placeholder when the name is absent.
func (l Lead) DisplayName(placeholder string) string {
	if l.Name == nil || strings.TrimSpace(*l.Name) == "" {
		return placeholder
	}
	return *l.Name
}

// Contact is a (phone, name) pair recognized in an image. Name is nil when
// no name was visible.
type Contact struct {
	Phone string  `json:"phone"`
	Name  *string `json:"name"`
}

// LeadStats summarizes the lead table.
type LeadStats struct {
	Total       int `json:"total"`
	Sent        int `json:"sent"`
	Unsent      int `json:"unsent"`
	WithMessage int `json:"with_message"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
