package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventar/internal/model"
)

func ptr[T any](v T) *T { return &v }

var (
	now        = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	categories = []model.Category{{ID: 1, Name: "Radios"}, {ID: 2, Name: "Laptops"}, {ID: 3, Name: "Empty"}}
	locations  = []model.Location{{ID: 10, Name: "Shelf", Capacity: 2}, {ID: 11, Name: "Hall"}, {ID: 12, Name: "Attic", Capacity: 4}}
	items      = []model.Item{
		{ID: "a", CategoryID: 1, Status: model.ItemStatusActive, HolderLocationID: ptr(int64(10))},
		{ID: "b", CategoryID: 1, Status: model.ItemStatusActive, HolderLocationID: ptr(int64(10))},
		{ID: "c", CategoryID: 1, Status: model.ItemStatusCheckedOut, HolderLocationID: ptr(int64(10)), HolderOrganizerID: ptr("ana")},
		{ID: "d", CategoryID: 2, Status: model.ItemStatusCheckedOut, HolderOrganizerID: ptr("bor")},
		{ID: "e", CategoryID: 9, Status: model.ItemStatusLost},
	}
)

func TestSummarize(t *testing.T) {
	movements := []model.Movement{
		{Reason: model.ReasonCheckout, CreatedAt: now.Add(-time.Hour)},
		{Reason: model.ReasonCheckout, CreatedAt: now.Add(-29 * 24 * time.Hour)},
		{Reason: model.ReasonLost, CreatedAt: now.Add(-31 * 24 * time.Hour)},
	}

	s := Summarize(items, categories, locations, movements, now)

	assert.Equal(t, 5, s.TotalItems)
	assert.Equal(t, map[string]int{"active": 2, "checked_out": 2, "lost": 1}, s.StatusCounts)
	assert.Equal(t, map[string]int{"Radios": 3, "Laptops": 1, UnknownName: 1}, s.CategoryCounts)
	assert.Equal(t, map[string]int{"Shelf": 3}, s.LocationCounts)
	assert.Equal(t, 2, s.RecentMovements)
	assert.Equal(t, 3, s.TotalMovements)
	assert.Equal(t, map[string]int{"checkout": 2, "lost": 1}, s.MovementReasons)
	assert.Equal(t, 2, s.ItemsWithPeople)
	assert.Equal(t, 3, s.ItemsWithLocation)
	assert.Equal(t, 1, s.UnassignedItems, "only items with neither holder are unassigned")
	assert.Equal(t, 1, s.LocationsInUse)
	assert.Equal(t, now, s.GeneratedAt)

	require.Len(t, s.Utilisation, 3)
	shelf := s.Utilisation[0]
	assert.Equal(t, "Shelf", shelf.Name)
	assert.Equal(t, 3, shelf.Items)
	assert.InDelta(t, 1.5, shelf.Ratio, 1e-9)
	assert.True(t, shelf.Over)
	for _, u := range s.Utilisation[1:] {
		assert.Zero(t, u.Items)
		assert.False(t, u.Over)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil, nil, nil, now)
	assert.Zero(t, s.TotalItems)
	assert.NotNil(t, s.StatusCounts)
	assert.Empty(t, s.Utilisation)
}

func TestCatalog(t *testing.T) {
	rows := Catalog(items, categories, locations)

	require.Len(t, rows, 2, "categories without items are omitted")
	radios := rows[0]
	assert.Equal(t, "Radios", radios.Category.Name)
	assert.Equal(t, 3, radios.TotalItems)
	assert.Equal(t, map[string]int{"Shelf": 3}, radios.LocationCounts)
	assert.Equal(t, map[string]int{"active": 2, "checked_out": 1}, radios.StatusCounts)
	assert.Equal(t, 1, radios.ItemsWithPeople)
	assert.Len(t, radios.Items, 3)

	laptops := rows[1]
	assert.Equal(t, "Laptops", laptops.Category.Name)
	assert.Empty(t, laptops.LocationCounts)
	assert.Equal(t, 1, laptops.ItemsWithPeople)
}
