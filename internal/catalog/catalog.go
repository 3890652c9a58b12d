// Package catalog provides SQLite-backed persistence for import history,
// per-card resolution outcomes, and fetched image bytes.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS orders (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT NOT NULL DEFAULT '',
	quantity    INTEGER NOT NULL DEFAULT 0,
	bracket     INTEGER NOT NULL DEFAULT 0,
	stock       TEXT NOT NULL DEFAULT '',
	foil        INTEGER NOT NULL DEFAULT 0,
	cardback    TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL DEFAULT '',
	resolved    INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	imported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS order_cards (
	order_id    INTEGER NOT NULL,
	position    INTEGER NOT NULL,
	card_id     TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL DEFAULT '',
	failure     TEXT NOT NULL DEFAULT '',
	bleed       INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (order_id, position)
);

CREATE INDEX IF NOT EXISTS idx_order_cards_card ON order_cards(card_id);

CREATE TABLE IF NOT EXISTS image_cache (
	fingerprint TEXT PRIMARY KEY,
	bytes       BLOB NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite catalog and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
