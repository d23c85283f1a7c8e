// Package movement holds the rules that reconcile an item's holder when a
// movement is recorded. It performs no I/O; the store applies the outcome.
package movement

import (
	"errors"
	"strings"

	"github.com/erazemk/inventar/internal/model"
)

var (
	ErrMissingItem    = errors.New("item_id is required")
	ErrInvalidReason  = errors.New("invalid movement reason")
	ErrNoDestination  = errors.New("either to_location_id or to_organizer_id must be specified")
	ErrItemRetired    = errors.New("item is disposed or archived and cannot be moved")
	ErrHolderMismatch = errors.New("source does not match the item's current holder")
	ErrSameHolder     = errors.New("item is already held by the destination")
)

// Request is a movement as submitted by a client. Nil from-fields are
// filled from the item's current holder.
type Request struct {
	ItemID          string  `json:"item_id"`
	FromLocationID  *int64  `json:"from_location_id"`
	FromOrganizerID *string `json:"from_organizer_id"`
	ToLocationID    *int64  `json:"to_location_id"`
	ToOrganizerID   *string `json:"to_organizer_id"`
	Reason          string  `json:"reason"`
	Notes           string  `json:"notes"`
}

// Holder is a location/organizer pair. Both nil means unassigned.
type Holder struct {
	LocationID  *int64
	OrganizerID *string
}

// Equal compares holders by value.
func (h Holder) Equal(o Holder) bool {
	return eqInt(h.LocationID, o.LocationID) && eqStr(h.OrganizerID, o.OrganizerID)
}

// Empty reports whether neither side is set.
func (h Holder) Empty() bool {
	return h.LocationID == nil && h.OrganizerID == nil
}

// HolderOf returns the item's current holder.
func HolderOf(item model.Item) Holder {
	return Holder{LocationID: item.HolderLocationID, OrganizerID: item.HolderOrganizerID}
}

// Outcome is a validated movement ready to be applied.
type Outcome struct {
	From   Holder
	To     Holder
	Status string
}

// Normalize maps client placeholders to nil: organizer ids "", "none" and
// "unassigned", and location ids <= 0.
func (r Request) Normalize() Request {
	r.ItemID = strings.TrimSpace(r.ItemID)
	r.Reason = strings.TrimSpace(r.Reason)
	r.FromLocationID = normLocation(r.FromLocationID)
	r.ToLocationID = normLocation(r.ToLocationID)
	r.FromOrganizerID = normOrganizer(r.FromOrganizerID)
	r.ToOrganizerID = normOrganizer(r.ToOrganizerID)
	return r
}

// Unassigns reports whether the client explicitly asked for no receiving
// organizer.
func (r Request) Unassigns() bool {
	return r.ToOrganizerID != nil && strings.TrimSpace(*r.ToOrganizerID) == "unassigned"
}

// Destination returns the requested destination holder.
func (r Request) Destination() Holder {
	return Holder{LocationID: r.ToLocationID, OrganizerID: r.ToOrganizerID}
}

// Validate checks the request on its own, without the item.
func (r Request) Validate() error {
	if r.ItemID == "" {
		return ErrMissingItem
	}
	if !model.ValidReason(r.Reason) {
		return ErrInvalidReason
	}
	if r.Destination().Empty() {
		return ErrNoDestination
	}
	return nil
}

// Resolve reconciles req against the item's current state.
func Resolve(item model.Item, req Request) (Outcome, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}
	if item.Retired() {
		return Outcome{}, ErrItemRetired
	}

	current := HolderOf(item)
	if req.FromLocationID != nil && !eqInt(req.FromLocationID, current.LocationID) {
		return Outcome{}, ErrHolderMismatch
	}
	if req.FromOrganizerID != nil && !eqStr(req.FromOrganizerID, current.OrganizerID) {
		return Outcome{}, ErrHolderMismatch
	}

	to := req.Destination()
	if req.Reason == model.ReasonTransfer && to.Equal(current) {
		return Outcome{}, ErrSameHolder
	}

	return Outcome{
		From:   current,
		To:     to,
		Status: StatusAfter(req.Reason, item.Status),
	}, nil
}

// StatusAfter returns the item status that follows a movement with reason.
func StatusAfter(reason, current string) string {
	switch reason {
	case model.ReasonCheckout:
		return model.ItemStatusCheckedOut
	case model.ReasonReturn:
		return model.ItemStatusActive
	case model.ReasonLost:
		return model.ItemStatusLost
	case model.ReasonDisposed:
		return model.ItemStatusDisposed
	case model.ReasonTransfer, model.ReasonRepair:
		// A lost item that moves again has been found.
		if current == model.ItemStatusLost {
			return model.ItemStatusActive
		}
	}
	return current
}

func normLocation(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

func normOrganizer(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" || v == "none" || v == "unassigned" {
		return nil
	}
	return &v
}

func eqInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
