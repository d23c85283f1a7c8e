package model

import (
	"strings"
	"time"
)

// Organizer is a person that can hold items.
type Organizer struct {
	ID        string     `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// FullName returns "First Last", skipping empty parts.
func (o Organizer) FullName() string {
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}
