package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domcart "example.com/mechstore/app/internal/domain/cart"
)

const cartSessionsSchema = `
CREATE TABLE IF NOT EXISTS cart_sessions (
    session_id TEXT        PRIMARY KEY,
    payload    JSONB       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// CartRepository persists cart session snapshots in a JSONB column.
type CartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

func (r *CartRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, cartSessionsSchema)
	return err
}

func (r *CartRepository) Load(ctx context.Context, sessionID string) (*domcart.Snapshot, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `
        SELECT payload
        FROM cart_sessions
        WHERE session_id = $1
    `, sessionID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
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
	_, err = r.pool.Exec(ctx, `
        INSERT INTO cart_sessions (session_id, payload, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (session_id) DO UPDATE
        SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
    `, snap.SessionID, payload, updatedAt.UTC())
	return err
}

func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_sessions WHERE session_id = $1`, sessionID)
	return err
}
