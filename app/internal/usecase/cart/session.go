package cart

import (
	domcart "example.com/mechstore/app/internal/domain/cart"
	domdiscount "example.com/mechstore/app/internal/domain/discount"
	"example.com/mechstore/app/internal/domain/pricing"
)

// Session names whose cart an operation touches. Guests are keyed by the
// browser's guest id; authenticated users by user id, with the bearer token
// forwarded upstream.
type Session struct {
	ID     string
	UserID string
	Token  string
}

func GuestSession(guestID string) Session {
	return Session{ID: "guest:" + guestID}
}

func UserSession(userID, token string) Session {
	return Session{ID: "user:" + userID, UserID: userID, Token: token}
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// View is a priced, read-only projection of a session.
type View struct {
	SessionID string
	Items     []domcart.Item
	Selection domcart.Selection
	Discount  domdiscount.State
	Summary   pricing.Summary
	SyncState domcart.SyncState
	Loading   bool
	Revision  uint64
}

func newView(snap *domcart.Snapshot) *View {
	items := snap.Cart.Items()
	return &View{
		SessionID: snap.SessionID,
		Items:     items,
		Selection: snap.Selection,
		Discount:  snap.Discount,
		Summary:   pricing.Calculate(items, snap.Discount.EffectivePercent()),
		SyncState: snap.Cart.SyncState,
		Loading:   snap.Cart.Loading,
		Revision:  snap.Cart.Revision,
	}
}
