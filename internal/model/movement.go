package model

import "time"

// Movement records a change of an item's holder.
type Movement struct {
	ID                 string    `json:"id"`
	ItemID             string    `json:"item_id"`
	FromLocationID     *int64    `json:"from_location_id"`
	FromOrganizerID    *string   `json:"from_organizer_id"`
	ToLocationID       *int64    `json:"to_location_id"`
	ToOrganizerID      *string   `json:"to_organizer_id"`
	Reason             string    `json:"reason"`
	Notes              string    `json:"notes,omitempty"`
	MovedBy            *int64    `json:"moved_by,omitempty"`
	MovedByOrganizerID *string   `json:"moved_by_organizer_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Movement reasons.
const (
	ReasonCheckout = "checkout"
	ReasonReturn   = "return"
	ReasonTransfer = "transfer"
	ReasonLost     = "lost"
	ReasonDisposed = "disposed"
	ReasonRepair   = "repair"
	ReasonOther    = "other"
)

// MovementReasons lists every valid movement reason.
var MovementReasons = []string{
	ReasonCheckout,
	ReasonReturn,
	ReasonTransfer,
	ReasonLost,
	ReasonDisposed,
	ReasonRepair,
	ReasonOther,
}

// ValidReason reports whether r is a known movement reason.
func ValidReason(r string) bool {
	for _, v := range MovementReasons {
		if v == r {
			return true
		}
	}
	return false
}
