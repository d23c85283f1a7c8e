package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/movement"
)

// Actor identifies who records a movement.
type Actor struct {
	UserID      *int64
	OrganizerID *string
}

// MovementFilter narrows ListMovements. Zero values match everything.
type MovementFilter struct {
	ItemID      string
	Query       string // substring of the item's name or asset tag
	LocationID  int64  // either side of the movement
	OrganizerID string // either side of the movement
	Reason      string
	Since       time.Time
	Limit       int
}

// BulkMoveRequest moves several items to one location.
type BulkMoveRequest struct {
	ItemIDs      []string `json:"item_ids"`
	ToLocationID int64    `json:"to_location_id"`
	Reason       string   `json:"reason"`
	Notes        string   `json:"notes"`
}

// CreateMovement records a movement and applies it to the item's holder
// and status in a single transaction.
func CreateMovement(ctx context.Context, db *sql.DB, req movement.Request, actor Actor) (*model.Movement, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := applyMovement(ctx, tx, req, actor)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing movement: %w", err)
	}
	return GetMovement(ctx, db, id)
}

// BulkMove moves every listed item to one location. Either all items move
// or none do. Duplicate ids are moved once.
func BulkMove(ctx context.Context, db *sql.DB, req BulkMoveRequest, actor Actor) ([]model.Movement, error) {
	if req.Reason == "" {
		req.Reason = model.ReasonTransfer
	}
	if req.ToLocationID <= 0 {
		return nil, movement.ErrNoDestination
	}

	seen := make(map[string]bool, len(req.ItemIDs))
	var itemIDs []string
	for _, id := range req.ItemIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		itemIDs = append(itemIDs, id)
	}
	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalid)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	to := req.ToLocationID
	movementIDs := make([]string, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		id, err := applyMovement(ctx, tx, movement.Request{
			ItemID:       itemID,
			ToLocationID: &to,
			Reason:       req.Reason,
			Notes:        req.Notes,
		}, actor)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", itemID, err)
		}
		movementIDs = append(movementIDs, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing bulk move: %w", err)
	}

	moved := make([]model.Movement, 0, len(movementIDs))
	for _, id := range movementIDs {
		m, err := GetMovement(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if m != nil {
			moved = append(moved, *m)
		}
	}
	return moved, nil
}

// applyMovement reconciles req against the item inside tx, updates the
// item and inserts the movement row. It returns the new movement id.
func applyMovement(ctx context.Context, tx *sql.Tx, req movement.Request, actor Actor) (string, error) {
	item, err := getItem(ctx, tx, req.ItemID)
	if err != nil {
		return "", err
	}
	if item == nil || item.DeletedAt != nil {
		return "", fmt.Errorf("item %s: %w", req.ItemID, ErrNotFound)
	}

	out, err := movement.Resolve(*item, req)
	if err != nil {
		return "", err
	}
	if err := checkHolder(ctx, tx, out.To.LocationID, out.To.OrganizerID); err != nil {
		return "", err
	}

	ts := now()
	_, err = tx.ExecContext(ctx,
		`UPDATE items SET holder_location_id = ?, holder_organizer_id = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		out.To.LocationID, out.To.OrganizerID, out.Status, ts, item.ID,
	)
	if err != nil {
		return "", fmt.Errorf("updating item holder: %w", err)
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO movements (id, item_id, from_location_id, from_organizer_id,
		                        to_location_id, to_organizer_id, reason, notes,
		                        moved_by, moved_by_organizer_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.ID, out.From.LocationID, out.From.OrganizerID,
		out.To.LocationID, out.To.OrganizerID, req.Reason, nullString(req.Notes),
		actor.UserID, actor.OrganizerID, ts,
	)
	if err != nil {
		return "", fmt.Errorf("recording movement: %w", err)
	}
	return id, nil
}

// GetMovement returns a movement by ID.
func GetMovement(ctx context.Context, db *sql.DB, id string) (*model.Movement, error) {
	query, args, err := movementQuery().Where(goqu.I("m.id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building movement query: %w", err)
	}

	m, err := scanMovement(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting movement: %w", err)
	}
	return m, nil
}

// ListMovements returns movements matching the filter, newest first.
func ListMovements(ctx context.Context, db *sql.DB, f MovementFilter) ([]model.Movement, error) {
	ds := movementQuery()

	if f.ItemID != "" {
		ds = ds.Where(goqu.I("m.item_id").Eq(f.ItemID))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		ds = ds.Where(containsAny(q, "i.name", "i.asset_tag"))
	}
	if f.LocationID > 0 {
		ds = ds.Where(goqu.Or(
			goqu.I("m.from_location_id").Eq(f.LocationID),
			goqu.I("m.to_location_id").Eq(f.LocationID),
		))
	}
	if f.OrganizerID != "" {
		ds = ds.Where(goqu.Or(
			goqu.I("m.from_organizer_id").Eq(f.OrganizerID),
			goqu.I("m.to_organizer_id").Eq(f.OrganizerID),
		))
	}
	if f.Reason != "" {
		ds = ds.Where(goqu.I("m.reason").Eq(f.Reason))
	}
	if !f.Since.IsZero() {
		ds = ds.Where(goqu.I("m.created_at").Gte(f.Since.UTC()))
	}
	if f.Limit > 0 {
		ds = ds.Limit(uint(f.Limit))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building movement query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	var movements []model.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}

// DeleteMovement removes a movement record. The item's current holder is
// not rewound.
func DeleteMovement(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM movements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting movement: %w", err)
	}
	return requireAffected(result, "movement")
}

func movementQuery() *goqu.SelectDataset {
	return dialect.From(goqu.T("movements").As("m")).
		LeftJoin(goqu.T("items").As("i"), goqu.On(goqu.I("m.item_id").Eq(goqu.I("i.id")))).
		Select(
			goqu.I("m.id"), goqu.I("m.item_id"),
			goqu.I("m.from_location_id"), goqu.I("m.from_organizer_id"),
			goqu.I("m.to_location_id"), goqu.I("m.to_organizer_id"),
			goqu.I("m.reason"), goqu.I("m.notes"),
			goqu.I("m.moved_by"), goqu.I("m.moved_by_organizer_id"), goqu.I("m.created_at"),
			goqu.L("COALESCE(i.name, i.asset_tag, '')").As("item_name"),
		).
		Order(goqu.I("m.created_at").Desc(), goqu.L("m.rowid").Desc())
}

func scanMovement(s scanner) (*model.Movement, error) {
	m := &model.Movement{}
	var notes sql.NullString
	err := s.Scan(&m.ID, &m.ItemID,
		&m.FromLocationID, &m.FromOrganizerID,
		&m.ToLocationID, &m.ToOrganizerID,
		&m.Reason, &notes,
		&m.MovedBy, &m.MovedByOrganizerID, &m.CreatedAt,
		&m.ItemName)
	if err != nil {
		return nil, err
	}
	m.Notes = notes.String
	return m, nil
}
