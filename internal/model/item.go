package model

import "time"

// Item is an individually tracked inventory item.
type Item struct {
	ID                string     `json:"id"`
	CategoryID        int64      `json:"category_id"`
	Name              string     `json:"name,omitempty"`
	AssetTag          string     `json:"asset_tag,omitempty"`
	SerialNumber      string     `json:"serial_number,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	Status            string     `json:"status"`
	HolderLocationID  *int64     `json:"holder_location_id"`
	HolderOrganizerID *string    `json:"holder_organizer_id"`
	ImageMime         string     `json:"image_mime,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
}

// Item statuses.
const (
	ItemStatusActive     = "active"
	ItemStatusCheckedOut = "checked_out"
	ItemStatusLost       = "lost"
	ItemStatusDisposed   = "disposed"
	ItemStatusArchived   = "archived"
)

// ItemStatuses lists every valid item status.
var ItemStatuses = []string{
	ItemStatusActive,
	ItemStatusCheckedOut,
	ItemStatusLost,
	ItemStatusDisposed,
	ItemStatusArchived,
}

// ValidItemStatus reports whether s is a known item status.
func ValidItemStatus(s string) bool {
	for _, v := range ItemStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Retired reports whether the item has left circulation and can no longer move.
func (i Item) Retired() bool {
	return i.Status == ItemStatusDisposed || i.Status == ItemStatusArchived
}

// Label returns the name, or the asset tag when the item has no name.
func (i Item) Label() string {
	if i.Name != "" {
		return i.Name
	}
	return i.AssetTag
}

// Unassigned reports whether nobody and nothing holds the item.
func (i Item) Unassigned() bool {
	return i.HolderLocationID == nil && i.HolderOrganizerID == nil
}
