// Package analytics derives inventory reports from listed entities.
package analytics

import (
	"sort"
	"time"

	"github.com/erazemk/inventar/internal/model"
)

// RecentWindow is how far back Summary.RecentMovements looks.
const RecentWindow = 30 * 24 * time.Hour

// UnknownName labels references to categories or locations that no longer exist.
const UnknownName = "Unknown"

// Summary is the inventory-wide report.
type Summary struct {
	TotalItems        int                   `json:"total_items"`
	StatusCounts      map[string]int        `json:"status_counts"`
	CategoryCounts    map[string]int        `json:"category_counts"`
	LocationCounts    map[string]int        `json:"location_counts"`
	RecentMovements   int                   `json:"recent_movements"`
	TotalMovements    int                   `json:"total_movements"`
	MovementReasons   map[string]int        `json:"movement_reasons"`
	ItemsWithPeople   int                   `json:"items_with_people"`
	ItemsWithLocation int                   `json:"items_with_location"`
	UnassignedItems   int                   `json:"unassigned_items"`
	LocationsInUse    int                   `json:"locations_in_use"`
	Utilisation       []LocationUtilisation `json:"utilisation"`
	GeneratedAt       time.Time             `json:"generated_at"`
}

// LocationUtilisation compares what a location holds with its capacity.
// Ratio is 0 for unbounded locations.
type LocationUtilisation struct {
	LocationID int64   `json:"location_id"`
	Name       string  `json:"name"`
	Items      int     `json:"items"`
	Capacity   int     `json:"capacity"`
	Ratio      float64 `json:"ratio"`
	Over       bool    `json:"over"`
}

// CategoryBreakdown is one row of the catalog.
type CategoryBreakdown struct {
	Category        model.Category `json:"category"`
	TotalItems      int            `json:"total_items"`
	LocationCounts  map[string]int `json:"location_counts"`
	StatusCounts    map[string]int `json:"status_counts"`
	ItemsWithPeople int            `json:"items_with_people"`
	Items           []model.Item   `json:"items"`
}

// Summarize builds the inventory-wide report as of now.
func Summarize(items []model.Item, categories []model.Category, locations []model.Location, movements []model.Movement, now time.Time) Summary {
	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}
	locationNames := make(map[int64]string, len(locations))
	for _, l := range locations {
		locationNames[l.ID] = l.Name
	}

	s := Summary{
		TotalItems:      len(items),
		StatusCounts:    map[string]int{},
		CategoryCounts:  map[string]int{},
		LocationCounts:  map[string]int{},
		MovementReasons: map[string]int{},
		TotalMovements:  len(movements),
		GeneratedAt:     now,
	}

	held := map[int64]int{}
	for _, item := range items {
		s.StatusCounts[item.Status]++
		s.CategoryCounts[nameOr(categoryNames, item.CategoryID)]++

		if item.HolderLocationID != nil {
			s.ItemsWithLocation++
			held[*item.HolderLocationID]++
			s.LocationCounts[nameOr(locationNames, *item.HolderLocationID)]++
		}
		if item.HolderOrganizerID != nil {
			s.ItemsWithPeople++
		}
		if item.Unassigned() {
			s.UnassignedItems++
		}
	}
	s.LocationsInUse = len(held)

	since := now.Add(-RecentWindow)
	for _, m := range movements {
		s.MovementReasons[m.Reason]++
		if !m.CreatedAt.Before(since) {
			s.RecentMovements++
		}
	}

	for _, l := range locations {
		u := LocationUtilisation{
			LocationID: l.ID,
			Name:       l.Name,
			Items:      held[l.ID],
			Capacity:   l.Capacity,
		}
		if !l.Unbounded() {
			u.Ratio = float64(u.Items) / float64(l.Capacity)
			u.Over = u.Items > l.Capacity
		}
		s.Utilisation = append(s.Utilisation, u)
	}
	sort.SliceStable(s.Utilisation, func(i, j int) bool {
		return s.Utilisation[i].Ratio > s.Utilisation[j].Ratio
	})

	return s
}

// Catalog groups items by category. Categories without items are omitted.
func Catalog(items []model.Item, categories []model.Category, locations []model.Location) []CategoryBreakdown {
	locationNames := make(map[int64]string, len(locations))
	for _, l := range locations {
		locationNames[l.ID] = l.Name
	}

	byCategory := map[int64][]model.Item{}
	for _, item := range items {
		byCategory[item.CategoryID] = append(byCategory[item.CategoryID], item)
	}

	var out []CategoryBreakdown
	for _, c := range categories {
		members := byCategory[c.ID]
		if len(members) == 0 {
			continue
		}
		b := CategoryBreakdown{
			Category:       c,
			TotalItems:     len(members),
			LocationCounts: map[string]int{},
			StatusCounts:   map[string]int{},
			Items:          members,
		}
		for _, item := range members {
			b.StatusCounts[item.Status]++
			if item.HolderLocationID != nil {
				b.LocationCounts[nameOr(locationNames, *item.HolderLocationID)]++
			}
			if item.HolderOrganizerID != nil {
				b.ItemsWithPeople++
			}
		}
		out = append(out, b)
	}
	return out
}

func nameOr(names map[int64]string, id int64) string {
	if n, ok := names[id]; ok {
		return n
	}
	return UnknownName
}
