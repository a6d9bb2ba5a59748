package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	domcart "example.com/mechstore/app/internal/domain/cart"
	domcheckout "example.com/mechstore/app/internal/domain/checkout"
	domdiscount "example.com/mechstore/app/internal/domain/discount"
	cartuc "example.com/mechstore/app/internal/usecase/cart"
)

type CartStore interface {
	Snapshot(ctx context.Context, sess cartuc.Session) (*domcart.Snapshot, error)
	SetDiscount(ctx context.Context, sess cartuc.Session, st domdiscount.State) (*cartuc.View, error)
}

type DiscountRevalidator interface {
	Revalidate(ctx context.Context, st domdiscount.State) (domdiscount.State, error)
}

type PaymentInitiator interface {
	InitiatePayment(ctx context.Context, p *domcheckout.Payload) (*domcheckout.Result, error)
}

type PaymentGateway interface {
	Payments(token string) PaymentInitiator
}

type PaymentGatewayFunc func(token string) PaymentInitiator

func (f PaymentGatewayFunc) Payments(token string) PaymentInitiator {
	return f(token)
}

type Dependencies struct {
	Carts              CartStore
	Discounts          DiscountRevalidator
	Payments           PaymentGateway
	Logger             *zap.Logger
	RevalidateDiscount bool
	UpstreamTimeout    time.Duration
}

type Service struct {
	carts      CartStore
	discounts  DiscountRevalidator
	payments   PaymentGateway
	logger     *zap.Logger
	revalidate bool
	timeout    time.Duration

	mu         sync.Mutex
	submitting map[string]struct{}
}

func NewService(deps Dependencies) *Service {
	timeout := deps.UpstreamTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		carts:      deps.Carts,
		discounts:  deps.Discounts,
		payments:   deps.Payments,
		logger:     logger,
		revalidate: deps.RevalidateDiscount,
		timeout:    timeout,
		submitting: make(map[string]struct{}),
	}
}

// Checkout validates the session cart, assembles the payment payload and
// submits it. Stock shortfalls and upstream failures are returned unchanged
// so the caller can show them; a session can submit again once this returns.
func (s *Service) Checkout(ctx context.Context, sess cartuc.Session, ship domcheckout.ShippingInput) (*domcheckout.Result, error) {
	if !sess.Authenticated() {
		return nil, domcheckout.ErrAuthenticationRequired
	}
	if !s.begin(sess.ID) {
		return nil, domcheckout.ErrCheckoutInProgress
	}
	defer s.end(sess.ID)

	snap, err := s.carts.Snapshot(ctx, sess)
	if err != nil {
		return nil, err
	}

	disc := snap.Discount
	if s.revalidate && disc.Applied {
		disc, err = s.revalidateDiscount(ctx, sess, disc)
		if err != nil {
			return nil, err
		}
	}

	payload, err := domcheckout.BuildPayload(snap.Cart.Items(), snap.Selection, disc, ship)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.payments.Payments(sess.Token).InitiatePayment(ctx, payload)
	if err != nil {
		var shortfall *domcheckout.StockShortfallError
		if errors.As(err, &shortfall) {
			s.logger.Info("checkout rejected for stock",
				zap.String("session", sess.ID),
				zap.Int64("available", shortfall.Available),
				zap.Int64("requested", shortfall.Requested))
			return nil, err
		}
		s.logger.Warn("payment initiation failed", zap.String("session", sess.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("payment initiated",
		zap.String("session", sess.ID),
		zap.Int("lines", len(payload.Lines)),
		zap.String("discount_code", payload.DiscountCode))
	return res, nil
}

func (s *Service) revalidateDiscount(ctx context.Context, sess cartuc.Session, disc domdiscount.State) (domdiscount.State, error) {
	vctx, cancel := context.WithTimeout(ctx, s.timeout)
	fresh, err := s.discounts.Revalidate(vctx, disc)
	cancel()
	if errors.Is(err, domdiscount.ErrInvalidCode) {
		if _, cerr := s.carts.SetDiscount(ctx, sess, domdiscount.State{}); cerr != nil {
			s.logger.Warn("clear stale discount", zap.String("session", sess.ID), zap.Error(cerr))
		}
		return domdiscount.State{}, err
	}
	if err != nil {
		return domdiscount.State{}, fmt.Errorf("revalidate discount: %w", err)
	}
	if !fresh.Percent.Equal(disc.Percent) {
		if _, err := s.carts.SetDiscount(ctx, sess, fresh); err != nil {
			s.logger.Warn("store refreshed discount", zap.String("session", sess.ID), zap.Error(err))
		}
	}
	return fresh, nil
}

func (s *Service) begin(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.submitting[sessionID]; busy {
		return false
	}
	s.submitting[sessionID] = struct{}{}
	return true
}

func (s *Service) end(sessionID string) {
	s.mu.Lock()
	delete(s.submitting, sessionID)
	s.mu.Unlock()
}
