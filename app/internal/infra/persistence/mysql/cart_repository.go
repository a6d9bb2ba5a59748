package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domcart "example.com/mechstore/app/internal/domain/cart"
)

const cartSessionsSchema = `
CREATE TABLE IF NOT EXISTS cart_sessions (
    session_id VARCHAR(128) NOT NULL PRIMARY KEY,
    payload    JSON         NOT NULL,
    updated_at DATETIME(6)  NOT NULL
)`

// CartRepository persists cart session snapshots as JSON documents.
type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, cartSessionsSchema)
	return err
}

func (r *CartRepository) Load(ctx context.Context, sessionID string) (*domcart.Snapshot, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `
        SELECT payload
        FROM cart_sessions
        WHERE session_id = ?
    `, sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domcart.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var snap domcart.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if snap.Cart == nil {
		snap.Cart = domcart.New()
	}
	return &snap, nil
}

func (r *CartRepository) Save(ctx context.Context, snap *domcart.Snapshot) error {
	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", snap.SessionID, err)
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT INTO cart_sessions (session_id, payload, updated_at)
        VALUES (?, ?, ?)
        ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)
    `, snap.SessionID, payload, updatedAt.UTC())
	return err
}

func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_sessions WHERE session_id = ?`, sessionID)
	return err
}
