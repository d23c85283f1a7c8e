package model

import "time"

// Location is a place that can hold items.
type Location struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Capacity  int        `json:"capacity"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Unbounded reports whether the location has no capacity limit.
func (l Location) Unbounded() bool {
	return l.Capacity <= 0
}
