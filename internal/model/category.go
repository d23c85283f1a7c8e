package model

import "time"

// Category groups items of the same kind (e.g. "Radio", "Laptop").
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
