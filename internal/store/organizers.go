package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/model"
)

// CreateOrganizer creates a person who can hold items.
func CreateOrganizer(ctx context.Context, db *sql.DB, firstName, lastName, email string) (*model.Organizer, error) {
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" && lastName == "" {
		return nil, fmt.Errorf("%w: first or last name is required", ErrInvalid)
	}

	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO organizers (id, first_name, last_name, email) VALUES (?, ?, ?, ?)`,
		id, firstName, lastName, nullString(email),
	)
	if err != nil {
		return nil, fmt.Errorf("creating organizer: %w", err)
	}

	return GetOrganizer(ctx, db, id)
}

// GetOrganizer returns an organizer by ID, including soft-deleted ones.
func GetOrganizer(ctx context.Context, db *sql.DB, id string) (*model.Organizer, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, created_at, deleted_at
		 FROM organizers WHERE id = ?`, id,
	)
	o, err := scanOrganizer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting organizer: %w", err)
	}
	return o, nil
}

// ListOrganizers returns all non-deleted organizers ordered by name.
func ListOrganizers(ctx context.Context, db *sql.DB) ([]model.Organizer, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, first_name, last_name, email, created_at, deleted_at
		 FROM organizers WHERE deleted_at IS NULL ORDER BY last_name, first_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing organizers: %w", err)
	}
	defer rows.Close()

	var organizers []model.Organizer
	for rows.Next() {
		o, err := scanOrganizer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning organizer: %w", err)
		}
		organizers = append(organizers, *o)
	}
	return organizers, rows.Err()
}

// UpdateOrganizer replaces an organizer's name and email.
func UpdateOrganizer(ctx context.Context, db *sql.DB, id, firstName, lastName, email string) error {
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" && lastName == "" {
		return fmt.Errorf("%w: first or last name is required", ErrInvalid)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE organizers SET first_name = ?, last_name = ?, email = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		firstName, lastName, nullString(email), id,
	)
	if err != nil {
		return fmt.Errorf("updating organizer: %w", err)
	}
	return requireAffected(result, "organizer")
}

// DeleteOrganizer soft-deletes an organizer. Fails while they hold any items.
func DeleteOrganizer(ctx context.Context, db *sql.DB, id string) error {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE holder_organizer_id = ? AND deleted_at IS NULL`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking organizer items: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: organizer still holds %d items", ErrInUse, count)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE organizers SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now(), id,
	)
	if err != nil {
		return fmt.Errorf("deleting organizer: %w", err)
	}
	return requireAffected(result, "organizer")
}

// ListItemsHeldBy returns the items an organizer currently holds.
func ListItemsHeldBy(ctx context.Context, db *sql.DB, organizerID string) ([]model.Item, error) {
	return ListItems(ctx, db, ItemFilter{Holder: holderOrganizerPrefix + organizerID})
}

func scanOrganizer(s scanner) (*model.Organizer, error) {
	o := &model.Organizer{}
	var email sql.NullString
	if err := s.Scan(&o.ID, &o.FirstName, &o.LastName, &email, &o.CreatedAt, &o.DeletedAt); err != nil {
		return nil, err
	}
	o.Email = email.String
	return o, nil
}
