package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domcart "example.com/mechstore/app/internal/domain/cart"
	domdiscount "example.com/mechstore/app/internal/domain/discount"
	domproduct "example.com/mechstore/app/internal/domain/product"
	"example.com/mechstore/app/internal/pkg/keylock"
)

const defaultUpstreamTimeout = 10 * time.Second

var (
	ErrAuthenticationRequired = errors.New("authenticated session required")
	ErrAlreadySynced          = errors.New("cart already synced for this session")
	ErrMergeInProgress        = errors.New("cart merge already in progress")
)

type CartRepository interface {
	domcart.Repository
}

type ProductReader interface {
	domproduct.Reader
}

// ServerCart is the authoritative cart held by the upstream commerce API for
// one authenticated user.
type ServerCart interface {
	FetchCart(ctx context.Context) ([]domcart.Item, error)
	AddItem(ctx context.Context, productID string, quantity int64) (*domcart.Item, error)
	UpdateOptions(ctx context.Context, productID string, opts domcart.Options) error
	Increase(ctx context.Context, productID string) error
	Decrease(ctx context.Context, productID string) error
	RemoveItem(ctx context.Context, productID string) error
}

type ServerCartProvider interface {
	ServerCart(token string) ServerCart
}

type ServerCartFunc func(token string) ServerCart

func (f ServerCartFunc) ServerCart(token string) ServerCart {
	return f(token)
}

type DiscountApplier interface {
	Apply(ctx context.Context, code string) (domdiscount.State, error)
}

type Dependencies struct {
	Repository      CartRepository
	Products        ProductReader
	Servers         ServerCartProvider
	Discounts       DiscountApplier
	Logger          *zap.Logger
	UpstreamTimeout time.Duration
}

type Service struct {
	repo      CartRepository
	products  ProductReader
	servers   ServerCartProvider
	discounts DiscountApplier
	merger    *Merger
	logger    *zap.Logger
	sessions  *keylock.Mutex
	lines     *keylock.Mutex
	timeout   time.Duration
	now       func() time.Time
}

func NewService(deps Dependencies) *Service {
	timeout := deps.UpstreamTimeout
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      deps.Repository,
		products:  deps.Products,
		servers:   deps.Servers,
		discounts: deps.Discounts,
		merger:    NewMerger(logger, timeout),
		logger:    logger,
		sessions:  keylock.New(),
		lines:     keylock.New(),
		timeout:   timeout,
		now:       time.Now,
	}
}

type OptionsInput struct {
	PurchaseType *domcart.PurchaseMode
	ResalePlanID *string
	CompanyID    *string
}

type SelectionInput struct {
	PurchaseMode *domcart.PurchaseMode
	CompanyID    *string
}

type MergeResult struct {
	View   *View
	Report Report
}

func (s *Service) GetCart(ctx context.Context, sess Session) (*View, error) {
	unlock := s.sessions.Lock(sess.ID)
	defer unlock()

	snap, err := s.load(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	return newView(snap), nil
}

// Snapshot returns a copy of the stored session state.
func (s *Service) Snapshot(ctx context.Context, sess Session) (*domcart.Snapshot, error) {
	unlock := s.sessions.Lock(sess.ID)
	defer unlock()

	return s.load(ctx, sess.ID)
}

func (s *Service) AddItem(ctx context.Context, sess Session, productID string, quantity int64) (*View, error) {
	if quantity <= 0 {
		return nil, domcart.ErrInvalidQuantity
	}

	var product *domproduct.Product
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.products.GetProduct(ctx, productID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	item, err := product.ToItem(quantity)
	if err != nil {
		return nil, err
	}

	return s.mutateLine(ctx, sess, productID,
		func(snap *domcart.Snapshot) error {
			if _, exists := snap.Cart.Item(productID); exists {
				return snap.Cart.Add(item)
			}
			if err := snap.Cart.Add(item); err != nil {
				return err
			}
			return domcart.ApplyItemSelection(snap.Cart, productID, snap.Selection)
		},
		func(ctx context.Context, server ServerCart, ch lineChange) error {
			if _, err := server.AddItem(ctx, productID, quantity); err != nil {
				return err
			}
			if ch.prev != nil || ch.next == nil {
				return nil
			}
			opts, ok := domcart.OptionsFor(*ch.next)
			if !ok {
				return nil
			}
			// Checkout carries per-line options, so a missed update here is not fatal.
			if err := server.UpdateOptions(ctx, productID, opts); err != nil {
				s.logger.Warn("apply options to new upstream cart item",
					zap.String("session", sess.ID), zap.String("product_id", productID), zap.Error(err))
			}
			return nil
		})
}

// SetQuantity stores quantity for the line; quantity <= 0 removes it.
func (s *Service) SetQuantity(ctx context.Context, sess Session, productID string, quantity int64) (*View, error) {
	return s.mutateLine(ctx, sess, productID,
		func(snap *domcart.Snapshot) error {
			return snap.Cart.SetQuantity(productID, quantity)
		},
		func(ctx context.Context, server ServerCart, ch lineChange) error {
			if ch.next == nil {
				return server.RemoveItem(ctx, productID)
			}
			delta := ch.next.Quantity - ch.prev.Quantity
			if delta > 0 {
				_, err := server.AddItem(ctx, productID, delta)
				return err
			}
			for ; delta < 0; delta++ {
				if err := server.Decrease(ctx, productID); err != nil {
					return err
				}
			}
			return nil
		})
}

func (s *Service) Increase(ctx context.Context, sess Session, productID string) (*View, error) {
	return s.mutateLine(ctx, sess, productID,
		func(snap *domcart.Snapshot) error {
			it, ok := snap.Cart.Item(productID)
			if !ok {
				return domcart.ErrItemNotFound
			}
			return snap.Cart.SetQuantity(productID, it.Quantity+1)
		},
		func(ctx context.Context, server ServerCart, _ lineChange) error {
			return server.Increase(ctx, productID)
		})
}

// Decrease drops one unit; the last unit removes the line.
func (s *Service) Decrease(ctx context.Context, sess Session, productID string) (*View, error) {
	return s.mutateLine(ctx, sess, productID,
		func(snap *domcart.Snapshot) error {
			it, ok := snap.Cart.Item(productID)
			if !ok {
				return domcart.ErrItemNotFound
			}
			return snap.Cart.SetQuantity(productID, it.Quantity-1)
		},
		func(ctx context.Context, server ServerCart, ch lineChange) error {
			if ch.next == nil {
				return server.RemoveItem(ctx, productID)
			}
			return server.Decrease(ctx, productID)
		})
}

func (s *Service) RemoveItem(ctx context.Context, sess Session, productID string) (*View, error) {
	return s.mutateLine(ctx, sess, productID,
		func(snap *domcart.Snapshot) error {
			return snap.Cart.Remove(productID)
		},
		func(ctx context.Context, server ServerCart, _ lineChange) error {
			return server.RemoveItem(ctx, productID)
		})
}

// SetItemOptions changes one line's mode, plan or company. All given fields
// are validated before any of them is stored.
func (s *Service) SetItemOptions(ctx context.Context, sess Session, productID string, in OptionsInput) (*View, error) {
	return s.mutateLine(ctx, sess, productID,
		func(snap *domcart.Snapshot) error {
			c := snap.Cart
			if _, ok := c.Item(productID); !ok {
				return domcart.ErrItemNotFound
			}
			switch {
			case in.PurchaseType != nil:
				plan := ""
				if in.ResalePlanID != nil {
					plan = *in.ResalePlanID
				}
				if err := c.SetPurchaseMode(productID, *in.PurchaseType, plan); err != nil {
					return err
				}
				if *in.PurchaseType == domcart.ModeWallet && plan != "" {
					if err := c.SetResalePlan(productID, plan); err != nil {
						return err
					}
				}
			case in.ResalePlanID != nil:
				if err := c.SetResalePlan(productID, *in.ResalePlanID); err != nil {
					return err
				}
			}
			if in.CompanyID != nil {
				return c.SetCompany(productID, *in.CompanyID)
			}
			return nil
		},
		func(ctx context.Context, server ServerCart, ch lineChange) error {
			if ch.next == nil {
				return nil
			}
			return server.UpdateOptions(ctx, productID, lineOptions(*ch.next))
		})
}

// SetSelection changes the session-wide mode and/or company and broadcasts
// it to every line. For authenticated sessions each line is then mirrored
// upstream; lines whose update fails are restored and reported together.
func (s *Service) SetSelection(ctx context.Context, sess Session, in SelectionInput) (*View, error) {
	if in.PurchaseMode != nil && !in.PurchaseMode.IsValid() {
		return nil, domcart.ErrInvalidPurchaseMode
	}

	apply := func(snap *domcart.Snapshot) error {
		if in.PurchaseMode != nil {
			snap.Selection.PurchaseMode = *in.PurchaseMode
		}
		if in.CompanyID != nil {
			snap.Selection.CompanyID = *in.CompanyID
		}
		return domcart.ApplySelection(snap.Cart, snap.Selection)
	}

	if !sess.Authenticated() {
		return s.update(ctx, sess.ID, apply)
	}

	current, err := s.Snapshot(ctx, sess)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, current.Cart.Len())
	for _, it := range current.Cart.Items() {
		keys = append(keys, lineKey(sess, it.ProductID))
	}
	unlockLines := s.lines.LockAll(keys)
	defer unlockLines()

	prev := make(map[string]domcart.Item)
	view, err := s.update(ctx, sess.ID, func(snap *domcart.Snapshot) error {
		for _, it := range snap.Cart.Items() {
			prev[it.ProductID] = it
		}
		return apply(snap)
	})
	if err != nil {
		return nil, err
	}

	server := s.servers.ServerCart(sess.Token)
	var failed []string
	var errs []error
	for _, it := range view.Items {
		if _, locked := prev[it.ProductID]; !locked {
			continue
		}
		err := s.call(ctx, func(ctx context.Context) error {
			return server.UpdateOptions(ctx, it.ProductID, lineOptions(it))
		})
		if err != nil {
			failed = append(failed, it.ProductID)
			errs = append(errs, fmt.Errorf("sync options for %s: %w", it.ProductID, err))
		}
	}
	if len(failed) == 0 {
		return view, nil
	}

	s.logger.Warn("upstream selection sync failed, restoring lines",
		zap.String("session", sess.ID), zap.Strings("product_ids", failed))
	if _, rerr := s.update(context.WithoutCancel(ctx), sess.ID, func(snap *domcart.Snapshot) error {
		for _, id := range failed {
			p := prev[id]
			snap.Cart.Restore(id, &p)
		}
		return nil
	}); rerr != nil {
		s.logger.Error("restore lines after failed selection sync",
			zap.String("session", sess.ID), zap.Error(rerr))
	}
	return nil, errors.Join(errs...)
}

func (s *Service) ApplyDiscount(ctx context.Context, sess Session, code string) (*View, error) {
	var st domdiscount.State
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		st, err = s.discounts.Apply(ctx, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.SetDiscount(ctx, sess, st)
}

func (s *Service) SetDiscount(ctx context.Context, sess Session, st domdiscount.State) (*View, error) {
	return s.update(ctx, sess.ID, func(snap *domcart.Snapshot) error {
		snap.Discount = st
		return nil
	})
}

func (s *Service) ClearDiscount(ctx context.Context, sess Session) (*View, error) {
	return s.SetDiscount(ctx, sess, domdiscount.State{})
}

// Clear drops the local session state, as on logout. Upstream items are
// left alone.
func (s *Service) Clear(ctx context.Context, sess Session) (*View, error) {
	unlock := s.sessions.Lock(sess.ID)
	defer unlock()

	if err := s.repo.Delete(ctx, sess.ID); err != nil && !errors.Is(err, domcart.ErrSessionNotFound) {
		return nil, fmt.Errorf("clear cart session: %w", err)
	}
	return newView(domcart.NewSnapshot(sess.ID)), nil
}

// Refresh replaces the local mirror of an already synced account cart with
// the upstream one.
func (s *Service) Refresh(ctx context.Context, sess Session) (*View, error) {
	if !sess.Authenticated() {
		return nil, ErrAuthenticationRequired
	}

	unlock := s.sessions.Lock(sess.ID)
	defer unlock()

	snap, err := s.load(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if !snap.Cart.Synced() {
		return nil, domcart.ErrNotSynced
	}

	snap.Cart.Loading = true
	if err := s.save(ctx, snap); err != nil {
		return nil, err
	}

	var items []domcart.Item
	server := s.servers.ServerCart(sess.Token)
	fetchErr := s.call(ctx, func(ctx context.Context) error {
		var err error
		items, err = server.FetchCart(ctx)
		return err
	})
	if fetchErr == nil {
		fetchErr = snap.Cart.Replace(items)
	}
	snap.Cart.Loading = false
	if err := s.save(context.WithoutCancel(ctx), snap); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("refresh account cart: %w", fetchErr)
	}
	return newView(snap), nil
}

// Merge replays the guest cart named by guestID into the account cart of
// sess, then adopts the upstream cart. Only guest lines are replayed: lines
// of the account session were mirrored upstream when they changed. A synced
// session merges again only when a non-empty guest cart is presented, as on
// a new sign in. A failed merge keeps the guest cart so it can be retried.
func (s *Service) Merge(ctx context.Context, sess Session, guestID string) (*MergeResult, error) {
	if !sess.Authenticated() {
		return nil, ErrAuthenticationRequired
	}

	unlock := s.sessions.Lock(sess.ID)
	defer unlock()

	snap, err := s.load(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if snap.Cart.SyncState == domcart.SyncMerging {
		return nil, ErrMergeInProgress
	}

	var guest *domcart.Snapshot
	guestKey := ""
	if guestID != "" {
		guestKey = GuestSession(guestID).ID
		unlockGuest := s.sessions.Lock(guestKey)
		defer unlockGuest()

		if guest, err = s.load(ctx, guestKey); err != nil {
			return nil, err
		}
	}
	hasGuestItems := guest != nil && guest.Cart.Len() > 0
	if snap.Cart.Synced() && !hasGuestItems {
		return nil, ErrAlreadySynced
	}

	pending := domcart.New()
	if hasGuestItems {
		if err := pending.Replace(guest.Cart.Items()); err != nil {
			return nil, err
		}
	}

	report, mergeErr := s.merger.Merge(ctx, s.servers.ServerCart(sess.Token), pending)
	if mergeErr != nil {
		return &MergeResult{View: newView(snap), Report: report}, mergeErr
	}

	if err := snap.Cart.Replace(pending.Items()); err != nil {
		return nil, err
	}
	snap.Cart.SyncState = domcart.SyncSynced
	if hasGuestItems {
		snap.Selection = guest.Selection
		snap.Discount = guest.Discount
	}
	if err := s.save(context.WithoutCancel(ctx), snap); err != nil {
		return nil, err
	}

	if hasGuestItems {
		if err := s.repo.Delete(ctx, guestKey); err != nil && !errors.Is(err, domcart.ErrSessionNotFound) {
			s.logger.Warn("discard merged guest cart", zap.String("session", guestKey), zap.Error(err))
		}
	}
	s.logger.Info("guest cart merged",
		zap.String("session", sess.ID),
		zap.Int("items", len(report.Items)),
		zap.Int("failed", len(report.Failed())))
	return &MergeResult{View: newView(snap), Report: report}, nil
}

type lineChange struct {
	prev *domcart.Item
	next *domcart.Item
}

// mutateLine applies local to the session and, for authenticated sessions,
// mirrors it upstream while holding the line's lock. A failed upstream call
// restores the line to what it was before local ran.
func (s *Service) mutateLine(
	ctx context.Context,
	sess Session,
	productID string,
	local func(snap *domcart.Snapshot) error,
	remote func(ctx context.Context, server ServerCart, ch lineChange) error,
) (*View, error) {
	if sess.Authenticated() {
		unlockLine := s.lines.Lock(lineKey(sess, productID))
		defer unlockLine()
	}

	var ch lineChange
	view, err := s.update(ctx, sess.ID, func(snap *domcart.Snapshot) error {
		if it, ok := snap.Cart.Item(productID); ok {
			ch.prev = &it
		}
		if err := local(snap); err != nil {
			return err
		}
		if it, ok := snap.Cart.Item(productID); ok {
			ch.next = &it
		}
		return nil
	})
	if err != nil || !sess.Authenticated() {
		return view, err
	}

	server := s.servers.ServerCart(sess.Token)
	err = s.call(ctx, func(ctx context.Context) error {
		return remote(ctx, server, ch)
	})
	if err == nil {
		return view, nil
	}

	s.logger.Warn("upstream cart update failed, restoring line",
		zap.String("session", sess.ID), zap.String("product_id", productID), zap.Error(err))
	if _, rerr := s.update(context.WithoutCancel(ctx), sess.ID, func(snap *domcart.Snapshot) error {
		snap.Cart.Restore(productID, ch.prev)
		return nil
	}); rerr != nil {
		s.logger.Error("restore line after failed upstream update",
			zap.String("session", sess.ID), zap.String("product_id", productID), zap.Error(rerr))
	}
	return nil, fmt.Errorf("sync cart item %s: %w", productID, err)
}

func (s *Service) update(ctx context.Context, sessionID string, fn func(snap *domcart.Snapshot) error) (*View, error) {
	unlock := s.sessions.Lock(sessionID)
	defer unlock()

	snap, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(snap); err != nil {
		return nil, err
	}
	if err := s.save(ctx, snap); err != nil {
		return nil, err
	}
	return newView(snap), nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*domcart.Snapshot, error) {
	snap, err := s.repo.Load(ctx, sessionID)
	if errors.Is(err, domcart.ErrSessionNotFound) {
		return domcart.NewSnapshot(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart session: %w", err)
	}
	return snap, nil
}

func (s *Service) save(ctx context.Context, snap *domcart.Snapshot) error {
	snap.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, snap); err != nil {
		return fmt.Errorf("save cart session: %w", err)
	}
	return nil
}

// call bounds a single upstream request.
func (s *Service) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

func lineKey(sess Session, productID string) string {
	return sess.ID + "/" + productID
}

// lineOptions is the full option set for a line as the upstream should
// store it, using effective mode and plan.
func lineOptions(it domcart.Item) domcart.Options {
	mode := domcart.EffectiveMode(it)
	opts := domcart.Options{PurchaseType: &mode}
	if plan, ok := domcart.EffectivePlan(it); ok {
		id := plan.ID
		opts.ResalePlanID = &id
	}
	if it.CompanyID != "" {
		company := it.CompanyID
		opts.CompanyID = &company
	}
	return opts
}
