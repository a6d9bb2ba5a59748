package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domcart "example.com/mechstore/app/internal/domain/cart"
	domcheckout "example.com/mechstore/app/internal/domain/checkout"
	domdiscount "example.com/mechstore/app/internal/domain/discount"
	cartuc "example.com/mechstore/app/internal/usecase/cart"
)

var buyer = cartuc.UserSession("u-7", "tok-7")

type mockCartStore struct {
	snap        *domcart.Snapshot
	snapErr     error
	setDiscount []domdiscount.State
}

func (m *mockCartStore) Snapshot(ctx context.Context, sess cartuc.Session) (*domcart.Snapshot, error) {
	if m.snapErr != nil {
		return nil, m.snapErr
	}
	return m.snap, nil
}

func (m *mockCartStore) SetDiscount(ctx context.Context, sess cartuc.Session, st domdiscount.State) (*cartuc.View, error) {
	m.setDiscount = append(m.setDiscount, st)
	m.snap.Discount = st
	return &cartuc.View{Discount: st}, nil
}

type mockRevalidator struct {
	fresh domdiscount.State
	err   error
	calls int
}

func (m *mockRevalidator) Revalidate(ctx context.Context, st domdiscount.State) (domdiscount.State, error) {
	m.calls++
	if m.err != nil {
		return domdiscount.State{}, m.err
	}
	return m.fresh, nil
}

type mockPayments struct {
	mu       sync.Mutex
	payloads []*domcheckout.Payload
	tokens   []string
	err      error
	started  chan struct{}
	release  chan struct{}
}

func (m *mockPayments) gateway() PaymentGateway {
	return PaymentGatewayFunc(func(token string) PaymentInitiator {
		m.mu.Lock()
		m.tokens = append(m.tokens, token)
		m.mu.Unlock()
		return m
	})
}

func (m *mockPayments) InitiatePayment(ctx context.Context, p *domcheckout.Payload) (*domcheckout.Result, error) {
	if m.started != nil {
		close(m.started)
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, p)
	if m.err != nil {
		return nil, m.err
	}
	return &domcheckout.Result{PaymentURL: "https://pay.example/session/1"}, nil
}

func newSnapshot(t *testing.T, mode domcart.PurchaseMode, company string) *domcart.Snapshot {
	t.Helper()
	snap := domcart.NewSnapshot(buyer.ID)
	plan, err := domcart.NewResalePlan("r3", 3, decimal.NewFromInt(10), decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, snap.Cart.Add(domcart.Item{
		ProductID:   "drill",
		UnitPrice:   decimal.NewFromInt(100),
		Quantity:    2,
		ResalePlans: []domcart.ResalePlan{plan},
	}))
	require.NoError(t, snap.Cart.Add(domcart.Item{
		ProductID: "gloves",
		UnitPrice: decimal.NewFromInt(40),
		Quantity:  1,
	}))
	snap.Selection = domcart.Selection{PurchaseMode: mode, CompanyID: company}
	require.NoError(t, domcart.ApplySelection(snap.Cart, snap.Selection))
	return snap
}

func appliedDiscount(t *testing.T, code string, percent int64) domdiscount.State {
	t.Helper()
	st, err := domdiscount.NewState(code, decimal.NewFromInt(percent))
	require.NoError(t, err)
	return st
}

var shipping = domcheckout.ShippingInput{Phone: "0100 000 0000", Address: "12 Nile St", ExtraPhones: []string{" ", "0111"}}

func TestCheckout_SubmitsPayload(t *testing.T) {
	snap := newSnapshot(t, domcart.ModeResale, "fastship")
	snap.Discount = appliedDiscount(t, "SAVE10", 10)
	carts := &mockCartStore{snap: snap}
	reval := &mockRevalidator{fresh: snap.Discount}
	payments := &mockPayments{}
	svc := NewService(Dependencies{
		Carts:              carts,
		Discounts:          reval,
		Payments:           payments.gateway(),
		RevalidateDiscount: true,
	})

	res, err := svc.Checkout(context.Background(), buyer, shipping)

	require.NoError(t, err)
	require.Equal(t, "https://pay.example/session/1", res.PaymentURL)
	require.Equal(t, []string{"tok-7"}, payments.tokens)
	require.Equal(t, 1, reval.calls)
	require.Empty(t, carts.setDiscount)

	require.Len(t, payments.payloads, 1)
	p := payments.payloads[0]
	require.Equal(t, "SAVE10", p.DiscountCode)
	require.True(t, p.DiscountPercent.Equal(decimal.NewFromInt(10)))
	require.Len(t, p.Lines, 2)
	require.Equal(t, domcart.ModeResale, p.Lines[0].PurchaseType)
	require.Equal(t, "r3", *p.Lines[0].ResalePlanID)
	require.Equal(t, domcart.ModeWallet, p.Lines[1].PurchaseType)
	require.Nil(t, p.Lines[1].ResalePlanID)
	require.NotNil(t, p.Shipping)
	require.Equal(t, []string{"0111"}, p.Shipping.ExtraPhones)
}

func TestCheckout_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		snap    func(t *testing.T) *domcart.Snapshot
		ship    domcheckout.ShippingInput
		wantErr error
	}{
		{
			name:    "Empty cart",
			snap:    func(t *testing.T) *domcart.Snapshot { return domcart.NewSnapshot(buyer.ID) },
			ship:    shipping,
			wantErr: domcheckout.ErrEmptyCart,
		},
		{
			name:    "No delivery partner",
			snap:    func(t *testing.T) *domcart.Snapshot { return newSnapshot(t, domcart.ModeResale, "") },
			ship:    shipping,
			wantErr: domcheckout.ErrDeliveryPartnerRequired,
		},
		{
			name:    "Wallet order without address",
			snap:    func(t *testing.T) *domcart.Snapshot { return newSnapshot(t, domcart.ModeWallet, "fastship") },
			ship:    domcheckout.ShippingInput{Phone: "0100"},
			wantErr: domcheckout.ErrShippingInfoRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := &mockPayments{}
			svc := NewService(Dependencies{
				Carts:     &mockCartStore{snap: tt.snap(t)},
				Discounts: &mockRevalidator{},
				Payments:  payments.gateway(),
			})

			_, err := svc.Checkout(context.Background(), buyer, tt.ship)

			require.ErrorIs(t, err, tt.wantErr)
			require.Empty(t, payments.payloads)
		})
	}
}

func TestCheckout_RequiresAuthenticatedSession(t *testing.T) {
	svc := NewService(Dependencies{Carts: &mockCartStore{}, Payments: (&mockPayments{}).gateway()})

	_, err := svc.Checkout(context.Background(), cartuc.GuestSession("g-1"), shipping)

	require.ErrorIs(t, err, domcheckout.ErrAuthenticationRequired)
}

func TestCheckout_InvalidatedDiscountIsCleared(t *testing.T) {
	snap := newSnapshot(t, domcart.ModeResale, "fastship")
	snap.Discount = appliedDiscount(t, "SPRING", 15)
	carts := &mockCartStore{snap: snap}
	payments := &mockPayments{}
	svc := NewService(Dependencies{
		Carts:              carts,
		Discounts:          &mockRevalidator{err: domdiscount.ErrInvalidCode},
		Payments:           payments.gateway(),
		RevalidateDiscount: true,
	})

	_, err := svc.Checkout(context.Background(), buyer, shipping)

	require.ErrorIs(t, err, domdiscount.ErrInvalidCode)
	require.Equal(t, []domdiscount.State{{}}, carts.setDiscount)
	require.Empty(t, payments.payloads)
}

func TestCheckout_ChangedPercentIsStoredAndUsed(t *testing.T) {
	snap := newSnapshot(t, domcart.ModeResale, "fastship")
	snap.Discount = appliedDiscount(t, "SAVE10", 10)
	carts := &mockCartStore{snap: snap}
	payments := &mockPayments{}
	svc := NewService(Dependencies{
		Carts:              carts,
		Discounts:          &mockRevalidator{fresh: appliedDiscount(t, "SAVE10", 5)},
		Payments:           payments.gateway(),
		RevalidateDiscount: true,
	})

	_, err := svc.Checkout(context.Background(), buyer, shipping)

	require.NoError(t, err)
	require.Len(t, carts.setDiscount, 1)
	require.True(t, payments.payloads[0].DiscountPercent.Equal(decimal.NewFromInt(5)))
}

func TestCheckout_RevalidationDisabled(t *testing.T) {
	snap := newSnapshot(t, domcart.ModeResale, "fastship")
	snap.Discount = appliedDiscount(t, "SAVE10", 10)
	reval := &mockRevalidator{err: errors.New("must not be called")}
	svc := NewService(Dependencies{
		Carts:     &mockCartStore{snap: snap},
		Discounts: reval,
		Payments:  (&mockPayments{}).gateway(),
	})

	_, err := svc.Checkout(context.Background(), buyer, shipping)

	require.NoError(t, err)
	require.Zero(t, reval.calls)
}

func TestCheckout_StockShortfallReleasesGuard(t *testing.T) {
	shortfall := &domcheckout.StockShortfallError{Message: "Only 1 left", Available: 1, Requested: 2}
	payments := &mockPayments{err: shortfall}
	svc := NewService(Dependencies{
		Carts:    &mockCartStore{snap: newSnapshot(t, domcart.ModeResale, "fastship")},
		Payments: payments.gateway(),
	})

	_, err := svc.Checkout(context.Background(), buyer, shipping)
	var got *domcheckout.StockShortfallError
	require.ErrorAs(t, err, &got)
	require.Equal(t, int64(1), got.Available)

	payments.err = nil
	_, err = svc.Checkout(context.Background(), buyer, shipping)
	require.NoError(t, err)
}

func TestCheckout_RejectsConcurrentSubmit(t *testing.T) {
	payments := &mockPayments{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(Dependencies{
		Carts:    &mockCartStore{snap: newSnapshot(t, domcart.ModeResale, "fastship")},
		Payments: payments.gateway(),
	})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(context.Background(), buyer, shipping)
		done <- err
	}()
	<-payments.started

	_, err := svc.Checkout(context.Background(), buyer, shipping)
	require.ErrorIs(t, err, domcheckout.ErrCheckoutInProgress)

	close(payments.release)
	require.NoError(t, <-done)
}
