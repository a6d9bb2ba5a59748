package cart

import (
	"time"

	domdiscount "example.com/mechstore/app/internal/domain/discount"
)

// Snapshot is the persisted state of one cart session.
type Snapshot struct {
	SessionID string            `json:"session_id"`
	Cart      *Cart             `json:"cart"`
	Selection Selection         `json:"selection"`
	Discount  domdiscount.State `json:"discount"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewSnapshot(sessionID string) *Snapshot {
	return &Snapshot{
		SessionID: sessionID,
		Cart:      New(),
		Selection: DefaultSelection(),
	}
}
