package models

import (
	"sort"
	"time"
)

// Draft is an operator's pending selection of calendar slots before they are reserved.
type Draft struct {
	OperatorID string      `json:"operator_id"`
	Slots      []time.Time `json:"slots"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Has reports whether slot is already part of the draft.
func (d *Draft) Has(slot time.Time) bool {
	for _, s := range d.Slots {
		if s.Equal(slot) {
			return true
		}
	}
	return false
}

// Toggle adds slot to the draft or removes it when already present.
// It reports whether the slot is selected afterwards.
func (d *Draft) Toggle(slot time.Time) bool {
	for i, s := range d.Slots {
		if s.Equal(slot) {
			d.Slots = append(d.Slots[:i], d.Slots[i+1:]...)
			return false
		}
	}
	d.Slots = append(d.Slots, slot)
	sort.Slice(d.Slots, func(i, j int) bool { return d.Slots[i].Before(d.Slots[j]) })
	return true
}

// Snapshot is the full in-memory view of the studio data handed to the engines.
type Snapshot struct {
	Clients  []Client  `json:"clients"`
	Projects []Project `json:"projects"`
	Bookings []Booking `json:"bookings"`
}

func (s *Snapshot) Client(id string) (*Client, bool) {
	for i := range s.Clients {
		if s.Clients[i].ID == id {
			return &s.Clients[i], true
		}
	}
	return nil, false
}

func (s *Snapshot) Project(id string) (*Project, bool) {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return &s.Projects[i], true
		}
	}
	return nil, false
}

// ClientName resolves a display name, degrading to UnknownClientName.
func (s *Snapshot) ClientName(id string) string {
	if c, ok := s.Client(id); ok {
		return c.Name
	}
	return UnknownClientName
}

// ProjectName resolves a display name, degrading to UnknownProjectName.
func (s *Snapshot) ProjectName(id string) string {
	if p, ok := s.Project(id); ok {
		return p.Name
	}
	return UnknownProjectName
}

// BookingsBetween returns bookings intersecting [from, to).
func (s *Snapshot) BookingsBetween(from, to time.Time) []Booking {
	var out []Booking
	for _, b := range s.Bookings {
		if b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, b)
		}
	}
	return out
}
