package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/inventar/internal/model"
)

// Snapshot is every live entity needed to build reports.
type Snapshot struct {
	Items      []model.Item
	Categories []model.Category
	Locations  []model.Location
	Movements  []model.Movement
}

// LoadSnapshot reads all live items, categories, locations and movements.
func LoadSnapshot(ctx context.Context, db *sql.DB) (*Snapshot, error) {
	var s Snapshot
	var err error
	if s.Items, err = ListItems(ctx, db, ItemFilter{}); err != nil {
		return nil, err
	}
	if s.Categories, err = ListCategories(ctx, db); err != nil {
		return nil, err
	}
	if s.Locations, err = ListLocations(ctx, db); err != nil {
		return nil, err
	}
	if s.Movements, err = ListMovements(ctx, db, MovementFilter{}); err != nil {
		return nil, err
	}
	return &s, nil
}
