package cart

import "context"

type Repository interface {
	// Load returns ErrSessionNotFound when nothing is stored for sessionID.
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}
