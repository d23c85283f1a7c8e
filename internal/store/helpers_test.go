package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/inventar/internal/model"
)

type fixture struct {
	category  *model.Category
	shelf     *model.Location
	storeroom *model.Location
	ana       *model.Organizer
	bor       *model.Organizer
}

func newFixture(t *testing.T, database *sql.DB) fixture {
	t.Helper()
	ctx := context.Background()

	var f fixture
	var err error
	if f.category, err = CreateCategory(ctx, database, "Cables", "HDMI and power"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if f.shelf, err = CreateLocation(ctx, database, "Shelf A", 2); err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	if f.storeroom, err = CreateLocation(ctx, database, "Storeroom", 0); err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	if f.ana, err = CreateOrganizer(ctx, database, "Ana", "Novak", "ana@example.com"); err != nil {
		t.Fatalf("CreateOrganizer: %v", err)
	}
	if f.bor, err = CreateOrganizer(ctx, database, "Bor", "Kos", ""); err != nil {
		t.Fatalf("CreateOrganizer: %v", err)
	}
	return f
}

func (f fixture) item(t *testing.T, database *sql.DB, name string) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, NewItem{
		CategoryID:       f.category.ID,
		Name:             name,
		HolderLocationID: &f.shelf.ID,
	})
	if err != nil {
		t.Fatalf("CreateItem(%q): %v", name, err)
	}
	return item
}

func ptr[T any](v T) *T { return &v }
