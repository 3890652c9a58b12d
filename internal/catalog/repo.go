package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jponter/proxyforge/internal/apperr"
)

// OrderRow is one imported order in the catalog.
type OrderRow struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Quantity   int       `json:"quantity"`
	Bracket    int       `json:"bracket"`
	Stock      string    `json:"stock"`
	Foil       bool      `json:"foil"`
	CardBack   string    `json:"cardback"`
	Outcome    string    `json:"outcome"`
	Resolved   int       `json:"resolved"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	ImportedAt time.Time `json:"imported_at"`
}

// CardRow is one card's resolution outcome within an order.
type CardRow struct {
	OrderID     int64  `json:"order_id"`
	Position    int    `json:"position"`
	CardID      string `json:"card_id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Failure     string `json:"failure,omitempty"`
	Bleed       bool   `json:"bleed"`
}

// ImportRecord is everything persisted for one completed import.
type ImportRecord struct {
	Order  OrderRow
	Cards  []CardRow
	Images map[string][]byte // fingerprint -> encoded bytes
}

// RecordImport persists the order header, its card rows, and any fetched
// image bytes within a single transaction. It returns the new order id.
func (db *DB) RecordImport(rec ImportRecord) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.Exec(`
		INSERT INTO orders (source, quantity, bracket, stock, foil, cardback, outcome, resolved, failed, skipped, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Order.Source, rec.Order.Quantity, rec.Order.Bracket, rec.Order.Stock, rec.Order.Foil,
		rec.Order.CardBack, rec.Order.Outcome, rec.Order.Resolved, rec.Order.Failed, rec.Order.Skipped,
		time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("catalog: insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("catalog: order id: %w", err)
	}

	if len(rec.Cards) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO order_cards (order_id, position, card_id, name, status, fingerprint, failure, bleed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("catalog: prepare card insert: %w", err)
		}
		defer stmt.Close()
		for _, c := range rec.Cards {
			if _, err := stmt.Exec(orderID, c.Position, c.CardID, c.Name, c.Status, c.Fingerprint, c.Failure, c.Bleed); err != nil {
				return 0, fmt.Errorf("catalog: insert card %s: %w", c.CardID, err)
			}
		}
	}

	for fp, data := range rec.Images {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO image_cache (fingerprint, bytes) VALUES (?, ?)`, fp, data); err != nil {
			return 0, fmt.Errorf("catalog: cache image: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("catalog: commit: %w", err)
	}
	return orderID, nil
}

// GetOrder returns the order header and its cards in print order.
func (db *DB) GetOrder(id int64) (*OrderRow, []CardRow, error) {
	row := db.conn.QueryRow(`
		SELECT id, source, quantity, bracket, stock, foil, cardback, outcome, resolved, failed, skipped, imported_at
		FROM orders WHERE id = ?
	`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("catalog: get order: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT order_id, position, card_id, name, status, fingerprint, failure, bleed
		FROM order_cards WHERE order_id = ? ORDER BY position
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: get cards: %w", err)
	}
	defer rows.Close()

	var cardRows []CardRow
	for rows.Next() {
		var c CardRow
		if err := rows.Scan(&c.OrderID, &c.Position, &c.CardID, &c.Name, &c.Status, &c.Fingerprint, &c.Failure, &c.Bleed); err != nil {
			return nil, nil, err
		}
		cardRows = append(cardRows, c)
	}
	return o, cardRows, rows.Err()
}

// ListOrders returns orders newest first, with the total count.
func (db *DB) ListOrders(limit, offset int) ([]OrderRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count orders: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, source, quantity, bracket, stock, foil, cardback, outcome, resolved, failed, skipped, imported_at
		FROM orders ORDER BY imported_at DESC, id DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

// CardStatus returns the resolution record for one card within an order.
func (db *DB) CardStatus(orderID int64, cardID string) (*CardRow, error) {
	var c CardRow
	err := db.conn.QueryRow(`
		SELECT order_id, position, card_id, name, status, fingerprint, failure, bleed
		FROM order_cards WHERE order_id = ? AND card_id = ? COLLATE NOCASE
	`, orderID, cardID).Scan(&c.OrderID, &c.Position, &c.CardID, &c.Name, &c.Status, &c.Fingerprint, &c.Failure, &c.Bleed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: card %s in order %d", apperr.ErrNotFound, cardID, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: card status: %w", err)
	}
	return &c, nil
}

// UpdateCard records a re-resolution outcome for one card.
func (db *DB) UpdateCard(orderID int64, cardID, status, fingerprint, failure string) error {
	res, err := db.conn.Exec(`
		UPDATE order_cards SET status = ?, fingerprint = ?, failure = ?
		WHERE order_id = ? AND card_id = ? COLLATE NOCASE
	`, status, fingerprint, failure, orderID, cardID)
	if err != nil {
		return fmt.Errorf("catalog: update card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: update card: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: card %s in order %d", apperr.ErrNotFound, cardID, orderID)
	}
	return nil
}

// PutImage stores encoded image bytes under their content fingerprint.
// Storing the same fingerprint twice is a no-op.
func (db *DB) PutImage(fingerprint string, data []byte) error {
	_, err := db.conn.Exec(`INSERT OR IGNORE INTO image_cache (fingerprint, bytes) VALUES (?, ?)`, fingerprint, data)
	if err != nil {
		return fmt.Errorf("catalog: put image: %w", err)
	}
	return nil
}

// GetImage returns the cached encoded bytes for a fingerprint.
func (db *DB) GetImage(fingerprint string) ([]byte, error) {
	var data []byte
	err := db.conn.QueryRow(`SELECT bytes FROM image_cache WHERE fingerprint = ?`, fingerprint).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: image %s", apperr.ErrNotFound, fingerprint)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get image: %w", err)
	}
	return data, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*OrderRow, error) {
	var o OrderRow
	err := s.Scan(&o.ID, &o.Source, &o.Quantity, &o.Bracket, &o.Stock, &o.Foil, &o.CardBack,
		&o.Outcome, &o.Resolved, &o.Failed, &o.Skipped, &o.ImportedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
