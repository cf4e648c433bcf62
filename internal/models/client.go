package models

import "time"

const (
	UnknownClientName  = "Unknown Client"
	UnknownProjectName = "Unknown Project"
)

type Client struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Phone     string    `json:"phone" yaml:"phone"`
	Email     string    `json:"email,omitempty" yaml:"email"`
	TaxID     string    `json:"tax_id,omitempty" yaml:"tax_id"`
	WhatsApp  string    `json:"whatsapp,omitempty" yaml:"whatsapp"`
	Notes     string    `json:"notes,omitempty" yaml:"notes"`
	Internal  bool      `json:"internal" yaml:"internal"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// ClientRef points at either an already stored client or one that still has to be created.
// Exactly one of ID and Pending is set.
type ClientRef struct {
	ID      string  `json:"id,omitempty"`
	Pending *Client `json:"pending,omitempty"`
}

func PersistedClient(id string) ClientRef { return ClientRef{ID: id} }

func PendingClient(c Client) ClientRef { return ClientRef{Pending: &c} }

func (r ClientRef) IsPending() bool { return r.Pending != nil }

// ProjectRef is the project counterpart of ClientRef. A pending project gets its ClientID
// from the resolved client reference.
type ProjectRef struct {
	ID      string   `json:"id,omitempty"`
	Pending *Project `json:"pending,omitempty"`
}

func PersistedProject(id string) ProjectRef { return ProjectRef{ID: id} }

func PendingProject(p Project) ProjectRef { return ProjectRef{Pending: &p} }

func (r ProjectRef) IsPending() bool { return r.Pending != nil }
