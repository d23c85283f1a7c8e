package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/inventar/internal/model"
)

// LocationUpdate holds optional location changes; nil fields are left as is.
type LocationUpdate struct {
	Name     *string `json:"name"`
	Capacity *int    `json:"capacity"`
}

// CreateLocation creates a new location. A capacity of 0 means unbounded.
func CreateLocation(ctx context.Context, db *sql.DB, name string, capacity int) (*model.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must not be negative", ErrInvalid)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO locations (name, capacity) VALUES (?, ?)`,
		name, capacity,
	)
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting location id: %w", err)
	}

	return GetLocation(ctx, db, id)
}

// GetLocation returns a location by ID, including soft-deleted ones.
func GetLocation(ctx context.Context, db *sql.DB, id int64) (*model.Location, error) {
	l := &model.Location{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, capacity, created_at, deleted_at
		 FROM locations WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.Capacity, &l.CreatedAt, &l.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return l, nil
}

// ListLocations returns all non-deleted locations ordered by name.
func ListLocations(ctx context.Context, db *sql.DB) ([]model.Location, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, capacity, created_at, deleted_at
		 FROM locations WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Capacity, &l.CreatedAt, &l.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// UpdateLocation applies a partial update.
func UpdateLocation(ctx context.Context, db *sql.DB, id int64, upd LocationUpdate) (*model.Location, error) {
	loc, err := GetLocation(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if loc == nil || loc.DeletedAt != nil {
		return nil, fmt.Errorf("location: %w", ErrNotFound)
	}

	if upd.Name != nil {
		loc.Name = strings.TrimSpace(*upd.Name)
		if loc.Name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalid)
		}
	}
	if upd.Capacity != nil {
		if *upd.Capacity < 0 {
			return nil, fmt.Errorf("%w: capacity must not be negative", ErrInvalid)
		}
		loc.Capacity = *upd.Capacity
	}

	_, err = db.ExecContext(ctx,
		`UPDATE locations SET name = ?, capacity = ? WHERE id = ? AND deleted_at IS NULL`,
		loc.Name, loc.Capacity, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating location: %w", err)
	}
	return loc, nil
}

// DeleteLocation soft-deletes a location. Fails while it holds any items.
func DeleteLocation(ctx context.Context, db *sql.DB, id int64) error {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE holder_location_id = ? AND deleted_at IS NULL`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking location items: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: location still holds %d items", ErrInUse, count)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE locations SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now(), id,
	)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return requireAffected(result, "location")
}

// ListItemsAtLocation returns the items a location currently holds.
func ListItemsAtLocation(ctx context.Context, db *sql.DB, id int64) ([]model.Item, error) {
	return ListItems(ctx, db, ItemFilter{Holder: fmt.Sprintf("%s%d", holderLocationPrefix, id)})
}
