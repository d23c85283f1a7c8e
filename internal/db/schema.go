package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS organizers (
    id         TEXT PRIMARY KEY,
    first_name TEXT NOT NULL DEFAULT '',
    last_name  TEXT NOT NULL DEFAULT '',
    email      TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    organizer_id  TEXT REFERENCES organizers(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS categories (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS locations (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    capacity   INTEGER NOT NULL DEFAULT 0 CHECK (capacity >= 0),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS items (
    id                  TEXT PRIMARY KEY,
    category_id         INTEGER NOT NULL REFERENCES categories(id),
    name                TEXT,
    asset_tag           TEXT,
    serial_number       TEXT,
    notes               TEXT,
    status              TEXT NOT NULL DEFAULT 'active'
                        CHECK (status IN ('active', 'checked_out', 'lost', 'disposed', 'archived')),
    holder_location_id  INTEGER REFERENCES locations(id),
    holder_organizer_id TEXT REFERENCES organizers(id),
    image               BLOB,
    image_mime          TEXT,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at          DATETIME,
    CHECK (COALESCE(name, '') <> '' OR COALESCE(asset_tag, '') <> '')
);

CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_id);
CREATE INDEX IF NOT EXISTS idx_items_holder_location ON items(holder_location_id);
CREATE INDEX IF NOT EXISTS idx_items_holder_organizer ON items(holder_organizer_id);
CREATE INDEX IF NOT EXISTS idx_items_asset_tag ON items(asset_tag);

CREATE TABLE IF NOT EXISTS movements (
    id                    TEXT PRIMARY KEY,
    item_id               TEXT NOT NULL REFERENCES items(id),
    from_location_id      INTEGER REFERENCES locations(id),
    from_organizer_id     TEXT REFERENCES organizers(id),
    to_location_id        INTEGER REFERENCES locations(id),
    to_organizer_id       TEXT REFERENCES organizers(id),
    reason                TEXT NOT NULL
                          CHECK (reason IN ('checkout', 'return', 'transfer', 'lost', 'disposed', 'repair', 'other')),
    notes                 TEXT,
    moved_by              INTEGER REFERENCES users(id),
    moved_by_organizer_id TEXT REFERENCES organizers(id),
    created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (to_location_id IS NOT NULL OR to_organizer_id IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_movements_item ON movements(item_id, created_at);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
