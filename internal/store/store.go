package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// ErrNotUpdated is returned by UpdateLead when no row matched the update,
// either because the lead does not exist or because OnlyIfNoMessage was set
// and the lead already has a message.
var ErrNotUpdated = eris.New("lead not updated")

// ErrLeadNotFound is returned by GetLead for an unknown id.
var ErrLeadNotFound = eris.New("lead not found")

// defaultListLimit caps ListLeads when the filter carries no limit.
const defaultListLimit = 500

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Status model.LeadStatus `json:"status,omitempty"`
	// Search matches a phone substring or a case-insensitive name substring.
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// LeadUpdate is a partial update of a lead. Message and WALink travel
// together: setting one without the other is rejected.
type LeadUpdate struct {
	Message *string
	WALink  *string
	Status  *model.LeadStatus

	// OnlyIfNoMessage restricts the update to leads whose message is still
	// absent.
	OnlyIfNoMessage bool
}

// Validate rejects empty and half-populated updates.
func (u LeadUpdate) Validate() error {
	if (u.Message == nil) != (u.WALink == nil) {
		return eris.New("store: message and wa_link must be updated together")
	}
	if u.Message == nil && u.Status == nil {
		return eris.New("store: empty lead update")
	}
	if u.Status != nil && !u.Status.Valid() {
		return eris.Errorf("store: invalid lead status %q", *u.Status)
	}
	return nil
}

// Store defines the persistence interface for leads.
type Store interface {
	InsertLead(ctx context.Context, phone string, name *string, status model.LeadStatus) (*model.Lead, error)
	UpdateLead(ctx context.Context, id string, upd LeadUpdate) error
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	PendingLeads(ctx context.Context) ([]model.Lead, error)
	LeadStats(ctx context.Context) (*model.LeadStats, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func validateInsert(phone string, status model.LeadStatus) error {
	if strings.TrimSpace(phone) == "" {
		return eris.New("store: phone is required")
	}
	if !status.Valid() {
		return eris.Errorf("store: invalid lead status %q", status)
	}
	return nil
}

// likePattern builds a %substring% LIKE pattern with wildcards escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

type scannable interface {
	Scan(dest ...any) error
}

// scanLead reads a row selected with leadColumns.
func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var status string
	if err := row.Scan(&l.ID, &l.Phone, &l.Name, &l.Message, &l.WALink, &status, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Status = model.LeadStatus(status)
	return &l, nil
}
