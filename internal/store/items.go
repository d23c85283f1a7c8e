package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/model"
)

// Holder filter values accepted by ItemFilter.Holder.
const (
	HolderAll             = "all"
	HolderUnassigned      = "unassigned"
	holderLocationPrefix  = "loc:"
	holderOrganizerPrefix = "org:"
)

var itemColumnNames = []string{
	"id", "category_id", "name", "asset_tag", "serial_number", "notes", "status",
	"holder_location_id", "holder_organizer_id", "image_mime",
	"created_at", "updated_at", "deleted_at",
}

var itemColumns = strings.Join(itemColumnNames, ", ")

// NewItem is the input for CreateItem.
type NewItem struct {
	CategoryID        int64   `json:"category_id"`
	Name              string  `json:"name"`
	AssetTag          string  `json:"asset_tag"`
	SerialNumber      string  `json:"serial_number"`
	Notes             string  `json:"notes"`
	Status            string  `json:"status"`
	HolderLocationID  *int64  `json:"holder_location_id"`
	HolderOrganizerID *string `json:"holder_organizer_id"`
}

// ItemDetails are the fields editable after creation. Category, holder and
// status change only through their own operations.
type ItemDetails struct {
	Name         string `json:"name"`
	AssetTag     string `json:"asset_tag"`
	SerialNumber string `json:"serial_number"`
	Notes        string `json:"notes"`
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	Query      string // substring of name or asset tag
	CategoryID int64
	Status     string
	Holder     string // "", "all", "unassigned", "loc:<id>", "org:<id>"
}

// CreateItem creates an item at its initial location.
func CreateItem(ctx context.Context, db *sql.DB, in NewItem) (*model.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.AssetTag = strings.TrimSpace(in.AssetTag)
	if in.Name == "" && in.AssetTag == "" {
		return nil, fmt.Errorf("%w: either name or asset tag must be provided", ErrInvalid)
	}
	if in.Status == "" {
		in.Status = model.ItemStatusActive
	}
	if !model.ValidItemStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, in.Status)
	}
	if in.HolderLocationID == nil || *in.HolderLocationID <= 0 {
		return nil, fmt.Errorf("%w: initial location is required", ErrInvalid)
	}
	if in.HolderOrganizerID != nil && *in.HolderOrganizerID == "" {
		in.HolderOrganizerID = nil
	}

	category, err := GetCategory(ctx, db, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("%w: category %d does not exist", ErrInvalid, in.CategoryID)
	}
	if err := checkHolder(ctx, db, in.HolderLocationID, in.HolderOrganizerID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ts := now()
	_, err = db.ExecContext(ctx,
		`INSERT INTO items (id, category_id, name, asset_tag, serial_number, notes, status,
		                    holder_location_id, holder_organizer_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.CategoryID, nullString(in.Name), nullString(in.AssetTag),
		nullString(in.SerialNumber), nullString(in.Notes), in.Status,
		in.HolderLocationID, in.HolderOrganizerID, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted ones.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	return getItem(ctx, db, id)
}

func getItem(ctx context.Context, q querier, id string) (*model.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns non-deleted items matching the filter, ordered by name.
func ListItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	ds := dialect.From("items").
		Select(columns(itemColumnNames)...).
		Where(goqu.C("deleted_at").IsNull())

	if q := strings.TrimSpace(f.Query); q != "" {
		ds = ds.Where(containsAny(q, "name", "asset_tag"))
	}
	if f.CategoryID > 0 {
		ds = ds.Where(goqu.C("category_id").Eq(f.CategoryID))
	}
	if f.Status != "" && f.Status != HolderAll {
		ds = ds.Where(goqu.C("status").Eq(f.Status))
	}

	switch h := f.Holder; {
	case h == "" || h == HolderAll:
	case h == HolderUnassigned:
		ds = ds.Where(goqu.C("holder_location_id").IsNull(), goqu.C("holder_organizer_id").IsNull())
	case strings.HasPrefix(h, holderLocationPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(h, holderLocationPrefix), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad holder filter %q", ErrInvalid, h)
		}
		ds = ds.Where(goqu.C("holder_location_id").Eq(id))
	case strings.HasPrefix(h, holderOrganizerPrefix):
		ds = ds.Where(goqu.C("holder_organizer_id").Eq(strings.TrimPrefix(h, holderOrganizerPrefix)))
	default:
		return nil, fmt.Errorf("%w: bad holder filter %q", ErrInvalid, h)
	}

	query, args, err := ds.Order(goqu.L("COALESCE(name, asset_tag)").Asc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building item query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem replaces an item's editable details.
func UpdateItem(ctx context.Context, db *sql.DB, id string, d ItemDetails) (*model.Item, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.AssetTag = strings.TrimSpace(d.AssetTag)
	if d.Name == "" && d.AssetTag == "" {
		return nil, fmt.Errorf("%w: either name or asset tag must be provided", ErrInvalid)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, asset_tag = ?, serial_number = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		nullString(d.Name), nullString(d.AssetTag), nullString(d.SerialNumber), nullString(d.Notes), now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if err := requireAffected(result, "item"); err != nil {
		return nil, err
	}
	return GetItem(ctx, db, id)
}

// SetItemStatus sets the status directly, for corrections and archiving.
func SetItemStatus(ctx context.Context, db *sql.DB, id, status string) (*model.Item, error) {
	if !model.ValidItemStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		status, now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("setting item status: %w", err)
	}
	if err := requireAffected(result, "item"); err != nil {
		return nil, err
	}
	return GetItem(ctx, db, id)
}

// DeleteItem soft-deletes an item and returns it. History stays readable.
func DeleteItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("deleting item: %w", err)
	}
	if err := requireAffected(result, "item"); err != nil {
		return nil, err
	}
	return GetItem(ctx, db, id)
}

// FindItemByCode resolves a scanned code. Asset tags win over names, names
// over serial numbers, serial numbers over ids.
func FindItemByCode(ctx context.Context, db *sql.DB, code string) (*model.Item, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE deleted_at IS NULL
		   AND (asset_tag = ? OR name = ? OR serial_number = ? OR id = ?)
		 ORDER BY CASE
		     WHEN asset_tag = ? THEN 0
		     WHEN name = ? THEN 1
		     WHEN serial_number = ? THEN 2
		     ELSE 3
		 END
		 LIMIT 1`,
		code, code, code, code, code, code, code,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding item by code: %w", err)
	}
	return item, nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id string, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, now(), id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return requireAffected(result, "item")
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// GetItemHistory returns the movements of an item, newest first.
func GetItemHistory(ctx context.Context, db *sql.DB, itemID string) ([]model.Movement, error) {
	return ListMovements(ctx, db, MovementFilter{ItemID: itemID})
}

// checkHolder verifies that the referenced location and organizer exist.
func checkHolder(ctx context.Context, q querier, locationID *int64, organizerID *string) error {
	if locationID != nil {
		ok, err := exists(ctx, q, "locations", *locationID)
		if err != nil {
			return fmt.Errorf("checking location: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: location %d does not exist", ErrInvalid, *locationID)
		}
	}
	if organizerID != nil {
		ok, err := exists(ctx, q, "organizers", *organizerID)
		if err != nil {
			return fmt.Errorf("checking organizer: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: organizer %s does not exist", ErrInvalid, *organizerID)
		}
	}
	return nil
}

func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	var name, assetTag, serial, notes, imageMime sql.NullString
	err := s.Scan(&item.ID, &item.CategoryID, &name, &assetTag, &serial, &notes, &item.Status,
		&item.HolderLocationID, &item.HolderOrganizerID, &imageMime,
		&item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err != nil {
		return nil, err
	}
	item.Name = name.String
	item.AssetTag = assetTag.String
	item.SerialNumber = serial.String
	item.Notes = notes.String
	item.ImageMime = imageMime.String
	return item, nil
}
