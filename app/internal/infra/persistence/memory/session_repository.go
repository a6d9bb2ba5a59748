package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	domcart "example.com/mechstore/app/internal/domain/cart"
)

// SessionRepository keeps cart snapshots in process memory. Snapshots are
// stored encoded so callers never share state with the store.
type SessionRepository struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		items: make(map[string][]byte),
	}
}

func (r *SessionRepository) Load(ctx context.Context, sessionID string) (*domcart.Snapshot, error) {
	r.mu.RLock()
	data, ok := r.items[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, domcart.ErrSessionNotFound
	}

	var snap domcart.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if snap.Cart == nil {
		snap.Cart = domcart.New()
	}
	return &snap, nil
}

func (r *SessionRepository) Save(ctx context.Context, snap *domcart.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", snap.SessionID, err)
	}

	r.mu.Lock()
	r.items[snap.SessionID] = data
	r.mu.Unlock()
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.items, sessionID)
	r.mu.Unlock()
	return nil
}
